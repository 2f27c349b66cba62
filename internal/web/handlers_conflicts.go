package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/logging"
)

func validAction(action string) bool {
	return action == lduapi.ActionKeep || action == lduapi.ActionOverwrite
}

// handleListConflicts serves the cached pending set. The watcher keeps
// it fresh; refresh=true forces a synchronous fetch first.
func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.workflow.Refresh(r.Context()); err != nil {
			respondError(w, r, err)
			return
		}
	}
	respondData(w, http.StatusOK, s.workflow.Pending())
}

func (s *Server) handleConflictSummary(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, s.workflow.Summary())
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accion string `json:"accion"`
		User   string `json:"user"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if !validAction(req.Accion) {
		respondDetail(w, http.StatusBadRequest, `accion debe ser "mantener" o "sobrescribir"`)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.workflow.Resolve(r.Context(), id, req.Accion, req.User); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("conflict resolved",
		"conflict_id", id, "action", req.Accion, "user", req.User)
	respondData(w, http.StatusOK, s.workflow.Summary())
}

func (s *Server) handleResolveAllConflicts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accion  string `json:"accion"`
		User    string `json:"user"`
		Confirm bool   `json:"confirm"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if !validAction(req.Accion) {
		respondDetail(w, http.StatusBadRequest, `accion debe ser "mantener" o "sobrescribir"`)
		return
	}

	n, err := s.workflow.ResolveAll(r.Context(), req.Accion, req.User, req.Confirm)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("all conflicts resolved",
		"count", n, "action", req.Accion, "user", req.User)
	respondData(w, http.StatusOK, map[string]int{"resueltos": n})
}
