package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cvazzz/guiadocs/internal/documents"
	"github.com/cvazzz/guiadocs/internal/logging"
)

// documentFilter builds a search filter from query parameters.
func documentFilter(r *http.Request) documents.Filter {
	q := r.URL.Query()
	f := documents.Filter{
		Keyword:    q.Get("q"),
		Proveedor:  q.Get("proveedor"),
		NumeroGuia: q.Get("numero_guia"),
		Producto:   q.Get("producto"),
		Phone:      q.Get("telefono"),
		Status:     q.Get("estado"),
	}

	if v := q.Get("firmado"); v != "" {
		firmado := v == "true" || v == "1"
		f.Firmado = &firmado
	}
	if v := q.Get("desde"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateFrom = &t
		}
	}
	if v := q.Get("hasta"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateTo = &t
		}
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = n
	}
	return f
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.Search(r.Context(), documentFilter(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if docs == nil {
		docs = []documents.Document{}
	}
	respondData(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

func (s *Server) handleRecentDocuments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	docs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if docs == nil {
		docs = []documents.Document{}
	}
	respondData(w, http.StatusOK, docs)
}

func (s *Server) handleProveedores(w http.ResponseWriter, r *http.Request) {
	proveedores, err := s.store.Proveedores(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if proveedores == nil {
		proveedores = []string{}
	}
	respondData(w, http.StatusOK, proveedores)
}

func (s *Server) handleExportDocuments(w http.ResponseWriter, r *http.Request) {
	f := documentFilter(r)
	// Exports want the whole filtered set, not a page.
	f.Limit = 200
	f.Offset = 0

	var all []documents.Document
	for {
		page, err := s.store.Search(r.Context(), f)
		if err != nil {
			respondError(w, r, err)
			return
		}
		all = append(all, page...)
		if len(page) < f.Limit {
			break
		}
		f.Offset += f.Limit
	}

	filename := fmt.Sprintf("guias_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := documents.WriteCSV(w, all); err != nil {
		logging.FromContext(r.Context()).Error("csv export failed", "error", err)
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("document deleted", "id", id)
	respondData(w, http.StatusOK, map[string]string{"id": id})
}
