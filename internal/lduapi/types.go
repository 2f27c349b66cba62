// Package lduapi is the HTTP client for the LDU registry backend. All
// device data lives behind that service; this package only speaks its
// JSON envelope and never touches the registry database directly.
package lduapi

import "time"

// Resolution actions accepted by the conflict endpoints.
const (
	ActionKeep      = "mantener"
	ActionOverwrite = "sobrescribir"
)

// Conflict is one pending field-level disagreement between a manual
// edit and an imported value.
type Conflict struct {
	ID            string     `json:"id"`
	IMEI          string     `json:"imei"`
	Campo         string     `json:"campo"`
	ValorActual   string     `json:"valor_actual"`
	ValorEntrante string     `json:"valor_entrante"`
	EditadoPor    string     `json:"editado_por,omitempty"`
	EditadoEn     *time.Time `json:"editado_en,omitempty"`
	ArchivoOrigen string     `json:"archivo_origen,omitempty"`
	FilaOrigen    int        `json:"fila_origen,omitempty"`
	Estado        string     `json:"estado"`
	Resolucion    string     `json:"resolucion,omitempty"`
}

// ConflictSummary aggregates pending conflicts for the notification
// banner.
type ConflictSummary struct {
	TotalPendientes    int            `json:"total_pendientes"`
	RegistrosAfectados int            `json:"registros_afectados"`
	ConflictosPorCampo map[string]int `json:"conflictos_por_campo"`
}

// RowError is one row the backend rejected during an import.
type RowError struct {
	Fila    int    `json:"fila"`
	Mensaje string `json:"mensaje"`
}

// ImportResult is the sync outcome the backend reports after an import
// finishes. Counts and row errors arrive together: an import with some
// failed rows is still a completed import.
type ImportResult struct {
	TotalFilas       int        `json:"total_filas"`
	Insertados       int        `json:"insertados"`
	Actualizados     int        `json:"actualizados"`
	SinCambios       int        `json:"sin_cambios"`
	Invalidos        int        `json:"invalidos"`
	MarcadosAusentes int        `json:"marcados_ausentes"`
	Conflictos       int        `json:"conflictos,omitempty"`
	Errores          []RowError `json:"errores,omitempty"`
	ImportacionID    string     `json:"importacion_id,omitempty"`
}

// SheetInfo describes one sheet of an uploaded workbook.
type SheetInfo struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// SpreadsheetAnalysis is the backend's first look at an uploaded file.
type SpreadsheetAnalysis struct {
	Filename string      `json:"filename"`
	IsCSV    bool        `json:"is_csv"`
	Sheets   []SheetInfo `json:"sheets"`
}

// SpreadsheetPreview carries the headers and leading rows of one sheet.
type SpreadsheetPreview struct {
	Columns   []string            `json:"columns"`
	Preview   []map[string]string `json:"preview"`
	TotalRows int                 `json:"total_rows"`
}

// Registro is one device row in the registry.
type Registro struct {
	ID                  string     `json:"id"`
	IMEI                string     `json:"imei"`
	Modelo              string     `json:"modelo,omitempty"`
	Region              string     `json:"region,omitempty"`
	PuntoVenta          string     `json:"punto_venta,omitempty"`
	NombreRuta          string     `json:"nombre_ruta,omitempty"`
	CoberturaValor      string     `json:"cobertura_valor,omitempty"`
	Canal               string     `json:"canal,omitempty"`
	Tipo                string     `json:"tipo,omitempty"`
	CampoReg            string     `json:"campo_reg,omitempty"`
	CampoOK             string     `json:"campo_ok,omitempty"`
	Uso                 string     `json:"uso,omitempty"`
	Observaciones       string     `json:"observaciones,omitempty"`
	Estado              string     `json:"estado,omitempty"`
	ResponsableDNI      string     `json:"responsable_dni,omitempty"`
	ResponsableNombre   string     `json:"responsable_nombre,omitempty"`
	ResponsableApellido string     `json:"responsable_apellido,omitempty"`
	Supervisor          string     `json:"supervisor,omitempty"`
	EditadoManualmente  bool       `json:"editado_manualmente,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// SearchResult is one page of registry search results.
type SearchResult struct {
	Registros []Registro `json:"registros"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
}

// Importacion is one historical import run.
type Importacion struct {
	ID           string       `json:"id"`
	Archivo      string       `json:"archivo"`
	Hoja         string       `json:"hoja,omitempty"`
	Usuario      string       `json:"usuario,omitempty"`
	Resultado    ImportResult `json:"resultado"`
	CreadoEn     time.Time    `json:"creado_en"`
	DuracionSegs float64      `json:"duracion_segs,omitempty"`
}

// Responsable is one person who can hold devices.
type Responsable struct {
	DNI      string `json:"dni"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Equipos  int    `json:"equipos"`
}

// RegistryStats is the aggregate view for the dashboard.
type RegistryStats struct {
	TotalRegistros    int            `json:"total_registros"`
	PorEstado         map[string]int `json:"por_estado,omitempty"`
	PorRegion         map[string]int `json:"por_region,omitempty"`
	PorCanal          map[string]int `json:"por_canal,omitempty"`
	EditadosManual    int            `json:"editados_manual,omitempty"`
	UltimaImportacion *time.Time     `json:"ultima_importacion,omitempty"`
}

// AuditEntry is one row of the registry change log.
type AuditEntry struct {
	ID            string    `json:"id"`
	IMEI          string    `json:"imei"`
	Campo         string    `json:"campo"`
	ValorAnterior string    `json:"valor_anterior,omitempty"`
	ValorNuevo    string    `json:"valor_nuevo,omitempty"`
	Usuario       string    `json:"usuario,omitempty"`
	Origen        string    `json:"origen,omitempty"`
	CreadoEn      time.Time `json:"creado_en"`
}
