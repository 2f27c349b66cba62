package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvazzz/guiadocs/internal/config"
	"github.com/cvazzz/guiadocs/internal/conflicts"
	"github.com/cvazzz/guiadocs/internal/importer"
	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/mapper"
)

// newTestServer wires a server against a stub LDU backend. The
// document store stays nil; these tests only exercise backend-facing
// routes.
func newTestServer(t *testing.T, backendHandler http.HandlerFunc) *Server {
	t.Helper()

	stub := httptest.NewServer(backendHandler)
	t.Cleanup(stub.Close)

	backend, err := lduapi.New(lduapi.Config{BaseURL: stub.URL + "/api"})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Rate.RequestsPerMinute = 10000
	cfg.Upload.MaxFileSize = 1 << 20

	workflow := conflicts.NewWorkflow(backend, 0)
	sessions := importer.NewManager(backend, mapper.DefaultCatalog(), 0)
	t.Cleanup(sessions.Shutdown)

	return NewServer(cfg, nil, backend, workflow, sessions)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Detail  string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Success, env.Detail
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	rec := doRequest(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	success, _ := decodeEnvelope(t, rec)
	assert.True(t, success)
}

func TestResolveConflictRejectsBadAction(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for an invalid action")
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/conflictos/c1/resolver",
		`{"accion":"descartar","user":"maria"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	success, detail := decodeEnvelope(t, rec)
	assert.False(t, success)
	assert.Contains(t, detail, "mantener")
}

func TestResolveAllRequiresConfirm(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without confirmation")
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/conflictos/resolver-todos",
		`{"accion":"mantener","user":"maria"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	success, detail := decodeEnvelope(t, rec)
	assert.False(t, success)
	assert.Contains(t, detail, "confirmacion")
}

func TestResolveAllWithConfirm(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/conflictos/resolver-todos", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]int{"resueltos": 4},
		})
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/conflictos/resolver-todos",
		`{"accion":"mantener","user":"maria","confirm":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	success, _ := decodeEnvelope(t, rec)
	assert.True(t, success)
	assert.Contains(t, rec.Body.String(), `"resueltos":4`)
}

func TestBackendDetailReachesClient(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"detail":  "registro bloqueado por otra importacion",
		})
	})

	rec := doRequest(t, s, http.MethodGet, "/api/ldu/conflictos?refresh=true", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	success, detail := decodeEnvelope(t, rec)
	assert.False(t, success)
	assert.Equal(t, "registro bloqueado por otra importacion", detail)
}

func TestConnectivityErrorIsGeneric(t *testing.T) {
	backend, err := lduapi.New(lduapi.Config{BaseURL: "http://127.0.0.1:1/api"})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Rate.RequestsPerMinute = 10000

	s := NewServer(cfg, nil, backend, conflicts.NewWorkflow(backend, 0),
		importer.NewManager(backend, mapper.DefaultCatalog(), 0))

	rec := doRequest(t, s, http.MethodGet, "/api/ldu/stats", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	_, detail := decodeEnvelope(t, rec)
	assert.NotContains(t, detail, "dial", "raw transport errors must not leak")
	assert.Contains(t, detail, "no se pudo conectar")
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/analyze-excel"):
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"filename": "equipos.csv",
					"is_csv":   true,
					"sheets":   []any{},
				},
			})
		default:
			t.Errorf("unexpected backend call %s", r.URL.Path)
		}
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/sesiones/", `{"user":"carlos"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.SessionID)

	// Unknown session id is a 404, not a 500.
	rec = doRequest(t, s, http.MethodGet, "/api/ldu/sesiones/00000000-0000-0000-0000-000000000000/mapeo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Mapping before preview is a client error.
	rec = doRequest(t, s, http.MethodGet, "/api/ldu/sesiones/"+created.Data.SessionID+"/mapeo", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportFromDriveRequiresFileID(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without a file reference")
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/import", `{"user":"carlos"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	success, detail := decodeEnvelope(t, rec)
	assert.False(t, success)
	assert.Contains(t, detail, "file_id")
}

func TestImportFromDriveForwardsFileAndMapping(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/import", r.URL.Path)

		var body struct {
			FileID        string            `json:"file_id"`
			ColumnMapping map[string]string `json:"column_mapping"`
			User          string            `json:"user"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "drive-file-1", body.FileID)
		assert.Equal(t, "imei", body.ColumnMapping["IMEI"])
		assert.Equal(t, "carlos", body.User)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"total_filas": 1200, "insertados": 300},
		})
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/import",
		`{"file_id":"drive-file-1","column_mapping":{"IMEI":"imei"},"user":"carlos"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	success, _ := decodeEnvelope(t, rec)
	assert.True(t, success)
	assert.Contains(t, rec.Body.String(), `"total_filas":1200`)
}

func TestReassignRequiresMotivo(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without a motive")
	})

	rec := doRequest(t, s, http.MethodPost, "/api/ldu/reasignar",
		`{"imei":"356938035643809","nuevo_dni":"45781234","user":"carlos"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	success, detail := decodeEnvelope(t, rec)
	assert.False(t, success)
	assert.Contains(t, detail, "motivo")
}

func TestExcelFilesProxied(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/excel-files", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "drive-file-1", "name": "LDU agosto.xlsx"},
			},
		})
	})

	rec := doRequest(t, s, http.MethodGet, "/api/ldu/excel-files", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drive-file-1")
}

func TestReportRoutesProxied(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/reportes/sin-responsable", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "r1", "imei": "356938035643809"},
			},
			"total": 1,
		})
	})

	rec := doRequest(t, s, http.MethodGet, "/api/ldu/reportes/sin-responsable", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestAPIKeyAuth(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	t.Cleanup(stub.Close)

	backend, err := lduapi.New(lduapi.Config{BaseURL: stub.URL + "/api"})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Rate.RequestsPerMinute = 10000
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret-key"}

	s := NewServer(cfg, nil, backend, conflicts.NewWorkflow(backend, 0),
		importer.NewManager(backend, mapper.DefaultCatalog(), 0))

	req := httptest.NewRequest(http.MethodGet, "/api/ldu/conflictos/resumen", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ldu/conflictos/resumen", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ldu/conflictos/resumen", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open for liveness checks.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
