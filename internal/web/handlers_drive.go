package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cvazzz/guiadocs/internal/lduapi"
)

// handleExcelFiles lists the spreadsheets available in the shared
// Drive folder so the user can pick one to import remotely.
func (s *Server) handleExcelFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.backend.ExcelFiles(r.Context(), r.URL.Query().Get("folder_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, files)
}

func (s *Server) handleExcelFilePreview(w http.ResponseWriter, r *http.Request) {
	rows, _ := strconv.Atoi(r.URL.Query().Get("rows"))
	preview, err := s.backend.ExcelFilePreview(r.Context(), chi.URLParam(r, "fileID"), rows)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, preview)
}

func (s *Server) handleHistorialResponsables(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.HistorialResponsables(r.Context(), chi.URLParam(r, "imei"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}

// handleReport proxies one of the fixed registry report lists.
func (s *Server) handleReport(fetch func(context.Context) ([]lduapi.Registro, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fetch(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, map[string]any{
			"registros": out,
			"total":     len(out),
		})
	}
}
