package lduapi

import (
	"errors"
	"fmt"
)

// ErrConnectivity wraps transport failures: the backend never answered,
// so whatever detail the error carries is not user-facing.
var ErrConnectivity = errors.New("backend unreachable")

// BackendError is an error the backend reported itself, either as an
// HTTP error status or as a success:false envelope. Detail is the
// backend's own message and is safe to show verbatim.
type BackendError struct {
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (status %d)", e.Status)
}

// NotFound reports whether the backend said the target no longer
// exists. Callers treat this as "someone else got there first" rather
// than a failure.
func (e *BackendError) NotFound() bool {
	return e.Status == 404 || e.Status == 409 || e.Status == 410
}

// UserMessage renders an error for display. Backend-reported details
// pass through untouched; transport errors collapse into a generic
// connectivity message so raw dial errors never reach the screen.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BackendError
	if errors.As(err, &be) {
		if be.Detail != "" {
			return be.Detail
		}
		return fmt.Sprintf("el servidor respondio con un error (%d)", be.Status)
	}
	if errors.Is(err, ErrConnectivity) {
		return "no se pudo conectar con el servidor, intente nuevamente"
	}
	return err.Error()
}
