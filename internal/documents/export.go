package documents

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"numero_guia", "fecha_documento", "proveedor", "direccion_destino",
	"productos", "cantidades", "firmado", "nombre_firmante",
	"transportista", "ruc", "placa", "estado_ocr", "archivo",
}

// WriteCSV streams documents as CSV for download. Multi-value columns
// are joined with "; " to keep one row per document.
func WriteCSV(w io.Writer, docs []Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, d := range docs {
		fecha := ""
		if d.FechaDocumento != nil {
			fecha = d.FechaDocumento.Format("2006-01-02")
		}
		row := []string{
			d.NumeroGuia,
			fecha,
			d.Proveedor,
			d.DireccionDestino,
			strings.Join(d.Productos, "; "),
			strings.Join(d.Cantidades, "; "),
			strconv.FormatBool(d.Firmado),
			d.NombreFirmante,
			d.Transportista,
			d.RUC,
			d.Placa,
			d.OCRStatus,
			d.DriveFileName,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
