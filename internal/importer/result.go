package importer

import (
	"fmt"
	"strings"

	"github.com/cvazzz/guiadocs/internal/lduapi"
)

// PartialFailure reports whether an import both did useful work and
// rejected rows. Such a run is shown as a completed import with
// warnings, never as an error.
func PartialFailure(r *lduapi.ImportResult) bool {
	if r == nil {
		return false
	}
	return len(r.Errores) > 0 && r.Insertados+r.Actualizados > 0
}

// Summarize renders an import result for display. Counts always come
// first; row errors follow when present so they are never hidden
// behind the happy-path numbers.
func Summarize(r *lduapi.ImportResult) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d filas procesadas: %d insertados, %d actualizados, %d sin cambios",
		r.TotalFilas, r.Insertados, r.Actualizados, r.SinCambios)
	if r.Invalidos > 0 {
		fmt.Fprintf(&b, ", %d invalidos", r.Invalidos)
	}
	if r.MarcadosAusentes > 0 {
		fmt.Fprintf(&b, ", %d marcados ausentes", r.MarcadosAusentes)
	}
	if r.Conflictos > 0 {
		fmt.Fprintf(&b, ", %d conflictos detectados", r.Conflictos)
	}

	if len(r.Errores) > 0 {
		fmt.Fprintf(&b, "\n%d filas con errores:", len(r.Errores))
		for _, e := range r.Errores {
			fmt.Fprintf(&b, "\n  fila %d: %s", e.Fila, e.Mensaje)
		}
	}
	return b.String()
}
