package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/logging"
)

func (s *Server) handleSearchRegistros(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := lduapi.RegistroFilter{
		Query:       q.Get("query"),
		IMEI:        q.Get("imei"),
		DNI:         q.Get("dni"),
		Region:      q.Get("region"),
		PuntoVenta:  q.Get("punto_venta"),
		Estado:      q.Get("estado"),
		Responsable: q.Get("responsable"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = n
	}

	res, err := s.backend.SearchRegistros(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (s *Server) handleGetRegistro(w http.ResponseWriter, r *http.Request) {
	reg, err := s.backend.GetRegistro(r.Context(), chi.URLParam(r, "imei"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, reg)
}

func (s *Server) handleRegistryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

func (s *Server) handleResponsables(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.Responsables(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}

func (s *Server) handleRegistrosByResponsable(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.RegistrosByResponsable(r.Context(), chi.URLParam(r, "dni"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req lduapi.Reassignment
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if req.IMEI == "" || req.NuevoDNI == "" || req.Motivo == "" {
		respondDetail(w, http.StatusBadRequest, "imei, nuevo_dni y motivo son requeridos")
		return
	}

	if err := s.backend.Reassign(r.Context(), req); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("device reassigned",
		"imei", req.IMEI, "dni", req.NuevoDNI, "motivo", req.Motivo, "user", req.User)
	respondData(w, http.StatusOK, map[string]string{"imei": req.IMEI})
}

func (s *Server) handleReassignBulk(w http.ResponseWriter, r *http.Request) {
	var req lduapi.BulkReassignment
	if err := decodeJSON(w, r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "cuerpo de solicitud invalido")
		return
	}
	if req.DNIAnterior == "" || req.NuevoDNI == "" || req.Motivo == "" {
		respondDetail(w, http.StatusBadRequest, "dni_anterior, nuevo_dni y motivo son requeridos")
		return
	}

	n, err := s.backend.ReassignBulk(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("devices reassigned in bulk",
		"from", req.DNIAnterior, "to", req.NuevoDNI, "count", n, "user", req.User)
	respondData(w, http.StatusOK, map[string]int{"reasignados": n})
}

func (s *Server) handleImportaciones(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.backend.Importaciones(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}

func (s *Server) handleGetImportacion(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.GetImportacion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}

func (s *Server) handleAuditoria(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	out, err := s.backend.Auditoria(r.Context(), q.Get("imei"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, out)
}
