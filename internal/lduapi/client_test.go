package lduapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api", APIKey: "test-key"})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: ""})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestPendingConflicts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/conflictos", r.URL.Path)
		assert.Equal(t, "pendiente", r.URL.Query().Get("estado"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "c1", "imei": "356938035643809", "campo": "region", "valor_actual": "Lima", "valor_entrante": "Cusco", "estado": "pendiente"},
			},
		})
	})

	conflicts, err := c.PendingConflicts(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "c1", conflicts[0].ID)
	assert.Equal(t, "Lima", conflicts[0].ValorActual)
	assert.Equal(t, "Cusco", conflicts[0].ValorEntrante)
}

func TestBackendDetailPassesThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"detail":  "columna IMEI no encontrada en la hoja",
		})
	})

	_, err := c.ConflictSummary(context.Background())
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnprocessableEntity, be.Status)
	assert.Equal(t, "columna IMEI no encontrada en la hoja", be.Detail)
	assert.Equal(t, "columna IMEI no encontrada en la hoja", UserMessage(err))
}

func TestSuccessFalseWithOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"detail":  "archivo vacio",
		})
	})

	_, err := c.Stats(context.Background())
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "archivo vacio", be.Detail)
}

func TestConnectivityError(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1/api"})
	require.NoError(t, err)

	_, err = c.ConflictSummary(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectivity))
	assert.Equal(t, "no se pudo conectar con el servidor, intente nuevamente", UserMessage(err))
}

func TestResolveConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ldu/conflictos/c42/resolver", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sobrescribir", body["accion"])
		assert.Equal(t, "maria", body["user"])

		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	require.NoError(t, c.ResolveConflict(context.Background(), "c42", ActionOverwrite, "maria"))
}

func TestResolveConflictRejectsBadAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should never reach the backend")
	})

	err := c.ResolveConflict(context.Background(), "c1", "descartar", "maria")
	assert.Error(t, err)
}

func TestResolveAllConflicts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/conflictos/resolver-todos", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]int{"resueltos": 7},
		})
	})

	n, err := c.ResolveAllConflicts(context.Background(), ActionKeep, "maria")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestImportSpreadsheetSendsMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/import-local", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "equipos.xlsx", header.Filename)

		assert.Equal(t, "Hoja1", r.FormValue("sheet_name"))
		assert.Equal(t, "carlos", r.FormValue("user"))
		assert.Equal(t, "true", r.FormValue("sync_to_drive"))

		var mapping map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("column_mapping")), &mapping))
		assert.Equal(t, "imei", mapping["IMEI"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"total_filas":  100,
				"insertados":   40,
				"actualizados": 55,
				"sin_cambios":  3,
				"errores": []map[string]any{
					{"fila": 12, "mensaje": "IMEI invalido"},
					{"fila": 77, "mensaje": "IMEI invalido"},
				},
			},
		})
	})

	result, err := c.ImportSpreadsheet(context.Background(), "equipos.xlsx", []byte("data"),
		"Hoja1", map[string]string{"IMEI": "imei", "MODEL": "modelo"}, "carlos", true)
	require.NoError(t, err)
	assert.Equal(t, 100, result.TotalFilas)
	assert.Equal(t, 40, result.Insertados)
	require.Len(t, result.Errores, 2)
	assert.Equal(t, 12, result.Errores[0].Fila)
}

func TestSearchRegistrosPagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/registros", r.URL.Path)
		assert.Equal(t, "samsung", r.URL.Query().Get("query"))
		assert.Equal(t, "Lima", r.URL.Query().Get("region"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "r1", "imei": "356938035643809", "modelo": "Galaxy A52"},
			},
			"total": 131,
			"page":  2,
			"limit": 25,
		})
	})

	res, err := c.SearchRegistros(context.Background(), RegistroFilter{
		Query: "samsung", Region: "Lima", Page: 2, Limit: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 131, res.Total)
	assert.Equal(t, 2, res.Page)
	require.Len(t, res.Registros, 1)
	assert.Equal(t, "Galaxy A52", res.Registros[0].Modelo)
}

func TestImportFromDriveSendsFileReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
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
			"data":    map[string]any{"total_filas": 800, "insertados": 200},
		})
	})

	result, err := c.ImportFromDrive(context.Background(), "drive-file-1",
		map[string]string{"IMEI": "imei"}, "carlos")
	require.NoError(t, err)
	assert.Equal(t, 800, result.TotalFilas)
}

func TestImportFromDriveRequiresFileReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should never reach the backend")
	})

	_, err := c.ImportFromDrive(context.Background(), "", nil, "carlos")
	assert.Error(t, err)
}

func TestReassignSendsNewHolderAndMotive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/reasignar", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "356938035643809", body["imei"])
		assert.Equal(t, "45781234", body["nuevo_dni"])
		assert.Equal(t, "Maria", body["nuevo_nombre"])
		assert.Equal(t, "Quispe", body["nuevo_apellido"])
		assert.Equal(t, "cambio de ruta", body["motivo"])
		assert.Equal(t, "carlos", body["user"])

		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	err := c.Reassign(context.Background(), Reassignment{
		IMEI:          "356938035643809",
		NuevoDNI:      "45781234",
		NuevoNombre:   "Maria",
		NuevoApellido: "Quispe",
		Motivo:        "cambio de ruta",
		User:          "carlos",
	})
	require.NoError(t, err)
}

func TestReassignRequiresMotive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should never reach the backend")
	})

	err := c.Reassign(context.Background(), Reassignment{
		IMEI: "356938035643809", NuevoDNI: "45781234",
	})
	assert.Error(t, err)
}

func TestReassignBulkSendsPreviousHolder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/reasignar-masivo", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "40123456", body["dni_anterior"])
		assert.Equal(t, "45781234", body["nuevo_dni"])
		assert.Equal(t, "baja del responsable", body["motivo"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]int{"reasignados": 14},
		})
	})

	n, err := c.ReassignBulk(context.Background(), BulkReassignment{
		DNIAnterior: "40123456",
		NuevoDNI:    "45781234",
		NuevoNombre: "Maria",
		Motivo:      "baja del responsable",
		User:        "carlos",
	})
	require.NoError(t, err)
	assert.Equal(t, 14, n)
}

func TestRegistrosByResponsablePath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/registros/responsable/45781234", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "r1", "imei": "356938035643809"},
				{"id": "r2", "imei": "867530912345678"},
			},
			"total": 2,
		})
	})

	out, err := c.RegistrosByResponsable(context.Background(), "45781234")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "356938035643809", out[0].IMEI)
}

func TestExcelFiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/excel-files", r.URL.Path)
		assert.Equal(t, "folder-9", r.URL.Query().Get("folder_id"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "drive-file-1", "name": "LDU agosto.xlsx", "mimeType": "application/vnd.ms-excel"},
			},
		})
	})

	files, err := c.ExcelFiles(context.Background(), "folder-9")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "drive-file-1", files[0].ID)
	assert.Equal(t, "LDU agosto.xlsx", files[0].Name)
}

func TestExcelFilePreview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/excel-files/drive-file-1/preview", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("rows"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"columns":          []string{"IMEI", "MODEL"},
				"expected_columns": []string{"IMEI", "MODEL", "DNI"},
				"missing_columns":  []string{"DNI"},
				"total_rows":       1200,
				"preview":          []map[string]string{{"IMEI": "356938035643809", "MODEL": "Galaxy A52"}},
			},
		})
	})

	p, err := c.ExcelFilePreview(context.Background(), "drive-file-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1200, p.TotalRows)
	assert.Equal(t, []string{"DNI"}, p.MissingColumns)
	require.Len(t, p.Preview, 1)
}

func TestHistorialResponsables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/historial-responsables/356938035643809", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{
					"ldu_imei":                 "356938035643809",
					"responsable_anterior_dni": "40123456",
					"responsable_nuevo_dni":    "45781234",
					"motivo":                   "cambio de ruta",
					"usuario_cambio":           "carlos",
				},
			},
		})
	})

	out, err := c.HistorialResponsables(context.Background(), "356938035643809")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "40123456", out[0].AnteriorDNI)
	assert.Equal(t, "45781234", out[0].NuevoDNI)
	assert.Equal(t, "cambio de ruta", out[0].Motivo)
}

func TestReportAusentes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/reportes/ausentes", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "r1", "imei": "356938035643809", "estado": "Activo"},
			},
			"total": 1,
		})
	})

	out, err := c.ReportAusentes(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "356938035643809", out[0].IMEI)
}

func TestAnalyzeSpreadsheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ldu/analyze-excel", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"filename": "equipos.xlsx",
				"is_csv":   false,
				"sheets": []map[string]any{
					{"name": "Hoja1", "row_count": 1200},
					{"name": "Resumen", "row_count": 30},
				},
			},
		})
	})

	a, err := c.AnalyzeSpreadsheet(context.Background(), "equipos.xlsx", []byte("data"))
	require.NoError(t, err)
	assert.False(t, a.IsCSV)
	require.Len(t, a.Sheets, 2)
	assert.Equal(t, "Hoja1", a.Sheets[0].Name)
	assert.Equal(t, 1200, a.Sheets[0].RowCount)
}
