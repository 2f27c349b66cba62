package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cvazzz/guiadocs/internal/importer"
	"github.com/cvazzz/guiadocs/internal/logging"
	"github.com/cvazzz/guiadocs/internal/mapper"
)

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*importer.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "identificador de sesion invalido")
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondDetail(w, http.StatusNotFound, "sesion no encontrada o expirada")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User string `json:"user"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}

	sess := s.sessions.Create(req.User)
	logging.FromContext(r.Context()).Info("import session created",
		"session_id", sess.ID, "user", req.User)
	respondData(w, http.StatusCreated, map[string]string{"session_id": sess.ID.String()})
}

// handleSessionUpload attaches the spreadsheet and returns its sheet
// inventory in one step.
func (s *Server) handleSessionUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		respondDetail(w, http.StatusRequestEntityTooLarge, "el archivo excede el tamano maximo permitido")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "falta el archivo en el campo 'file'")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := sess.SetFile(header.Filename, data); err != nil {
		respondError(w, r, err)
		return
	}

	analysis, err := sess.Analyze(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("file uploaded",
		"session_id", sess.ID, "filename", header.Filename, "size", len(data))
	respondData(w, http.StatusOK, analysis)
}

func (s *Server) handleSessionSelectSheet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Sheet string `json:"sheet"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if err := sess.SelectSheet(req.Sheet); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	respondData(w, http.StatusOK, map[string]string{"sheet": req.Sheet})
}

// mappingView is the wire shape of a session's mapping state.
type mappingView struct {
	Entries    []mapper.Entry      `json:"entries"`
	Fields     []mapper.Field      `json:"fields"`
	Warnings   []string            `json:"warnings"`
	CanImport  bool                `json:"can_import"`
	Duplicados map[string][]string `json:"duplicados,omitempty"`
}

func newMappingView(m *mapper.Mapping, catalog *mapper.Catalog) mappingView {
	v := mappingView{
		Entries:   m.Entries(),
		Fields:    catalog.Fields(),
		Warnings:  m.Validate(),
		CanImport: m.CanImport(),
	}
	if dups := m.DuplicateTargets(); len(dups) > 0 {
		v.Duplicados = dups
	}
	if v.Warnings == nil {
		v.Warnings = []string{}
	}
	return v
}

func (s *Server) handleSessionPreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	preview, mapping, err := sess.Preview(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"preview": preview,
		"mapeo":   newMappingView(mapping, s.sessions.Catalog()),
	})
}

func (s *Server) handleSessionMapping(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	m := sess.Mapping()
	if m == nil {
		respondError(w, r, importer.ErrNoPreview)
		return
	}
	respondData(w, http.StatusOK, newMappingView(m, s.sessions.Catalog()))
}

func (s *Server) handleSessionAssign(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Column int    `json:"column"`
		Field  string `json:"field"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if err := sess.AssignColumn(req.Column, req.Field); err != nil {
		if errors.Is(err, importer.ErrNoPreview) {
			respondError(w, r, err)
			return
		}
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	respondData(w, http.StatusOK, newMappingView(sess.Mapping(), s.sessions.Catalog()))
}

func (s *Server) handleSessionRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		SyncToDrive bool `json:"sync_to_drive"`
	}
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}

	result, err := sess.Run(r.Context(), req.SyncToDrive)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import finished",
		"session_id", sess.ID,
		"total", result.TotalFilas,
		"insertados", result.Insertados,
		"actualizados", result.Actualizados,
		"errores", len(result.Errores),
		"partial", importer.PartialFailure(result),
	)
	respondData(w, http.StatusOK, map[string]any{
		"resultado": result,
		"resumen":   importer.Summarize(result),
		"parcial":   importer.PartialFailure(result),
	})
}

func (s *Server) handleSessionCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Cancel()
	logging.FromContext(r.Context()).Info("import cancelled", "session_id", sess.ID)
	respondData(w, http.StatusOK, map[string]bool{"cancelado": true})
}

func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	result := sess.Result()
	if result == nil {
		respondData(w, http.StatusOK, map[string]any{
			"running": sess.Running(),
		})
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"running":   false,
		"resultado": result,
		"resumen":   importer.Summarize(result),
		"parcial":   importer.PartialFailure(result),
	})
}

func (s *Server) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sessions.Remove(sess.ID)
	respondData(w, http.StatusOK, map[string]bool{"cerrada": true})
}

// handleImportFromDrive triggers a server-side import of a shared
// Drive spreadsheet without an upload. The file reference comes from
// the Drive browser endpoints.
func (s *Server) handleImportFromDrive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID        string            `json:"file_id"`
		ColumnMapping map[string]string `json:"column_mapping"`
		User          string            `json:"user"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if req.FileID == "" {
		respondDetail(w, http.StatusBadRequest, "file_id es requerido")
		return
	}

	result, err := s.backend.ImportFromDrive(r.Context(), req.FileID, req.ColumnMapping, req.User)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("drive import finished",
		"file_id", req.FileID, "total", result.TotalFilas, "user", req.User)
	respondData(w, http.StatusOK, map[string]any{
		"resultado": result,
		"resumen":   importer.Summarize(result),
		"parcial":   importer.PartialFailure(result),
	})
}
