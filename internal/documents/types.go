// Package documents stores and queries scanned shipment receipts
// (guias de remision). Rows are written by the OCR pipeline; this
// package is the read/search/maintenance side used by the web UI.
package documents

import "time"

// OCR processing states for a document.
const (
	StatusPending   = "pendiente"
	StatusCompleted = "completado"
	StatusError     = "error"
)

// Document is one scanned shipment receipt with its extracted fields.
type Document struct {
	ID               string     `json:"id"`
	DriveFileID      string     `json:"drive_file_id"`
	DriveFileName    string     `json:"drive_file_name"`
	DriveFileURL     string     `json:"drive_file_url,omitempty"`
	DriveEmbedURL    string     `json:"drive_embed_url,omitempty"`
	NumeroGuia       string     `json:"numero_guia,omitempty"`
	FechaDocumento   *time.Time `json:"fecha_documento,omitempty"`
	Proveedor        string     `json:"proveedor,omitempty"`
	DireccionDestino string     `json:"direccion_destino,omitempty"`
	Productos        []string   `json:"productos,omitempty"`
	Cantidades       []string   `json:"cantidades,omitempty"`
	UnidadMedida     []string   `json:"unidad_medida,omitempty"`
	Firmado          bool       `json:"firmado"`
	NombreFirmante   string     `json:"nombre_firmante,omitempty"`
	Observaciones    string     `json:"observaciones,omitempty"`
	NumeroPaginas    int        `json:"numero_paginas,omitempty"`
	CodigoInterno    string     `json:"codigo_interno,omitempty"`
	DummyPhones      []string   `json:"dummy_phones,omitempty"`
	Transportista    string     `json:"transportista,omitempty"`
	RUC              string     `json:"ruc,omitempty"`
	Placa            string     `json:"placa,omitempty"`
	OCRStatus        string     `json:"ocr_status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Filter narrows a document search. Zero values are ignored.
type Filter struct {
	Keyword    string
	Proveedor  string
	NumeroGuia string
	Producto   string
	Phone      string
	Status     string
	Firmado    *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// Stats is the aggregate document view for the dashboard.
type Stats struct {
	Total       int `json:"total"`
	Completados int `json:"completados"`
	Pendientes  int `json:"pendientes"`
	Errores     int `json:"errores"`
	Firmados    int `json:"firmados"`
	SinFirmar   int `json:"sin_firmar"`
	Proveedores int `json:"proveedores"`
}
