package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cvazzz/guiadocs/internal/conflicts"
	"github.com/cvazzz/guiadocs/internal/documents"
	"github.com/cvazzz/guiadocs/internal/importer"
	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/logging"
)

// envelope is the uniform JSON response shape. Data is present on
// success, Detail on failure; Success disambiguates for clients.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Detail: detail})
}

// respondError maps an error to a status and a safe detail message.
// Backend details pass through verbatim; transport failures become a
// generic 502 so dial errors never leak to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var be *lduapi.BackendError
	switch {
	case errors.As(err, &be):
		status := be.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		logger.Warn("backend error", "status", be.Status, "detail", be.Detail)
		respondDetail(w, status, lduapi.UserMessage(err))

	case errors.Is(err, lduapi.ErrConnectivity):
		logger.Error("backend unreachable", "error", err)
		respondDetail(w, http.StatusBadGateway, lduapi.UserMessage(err))

	case errors.Is(err, documents.ErrNotFound):
		respondDetail(w, http.StatusNotFound, "documento no encontrado")

	case errors.Is(err, conflicts.ErrNotConfirmed):
		respondDetail(w, http.StatusBadRequest, "la resolucion masiva requiere confirmacion explicita")

	case errors.Is(err, importer.ErrNoFile),
		errors.Is(err, importer.ErrNoPreview),
		errors.Is(err, importer.ErrMappingIncomplete),
		errors.Is(err, importer.ErrDuplicateTargets):
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, importer.ErrAlreadyRunning):
		respondDetail(w, http.StatusConflict, err.Error())

	default:
		logger.Error("request failed", "error", err)
		respondDetail(w, http.StatusInternalServerError, "error interno")
	}
}

// decodeJSON reads a request body into dst with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
