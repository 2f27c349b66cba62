package lduapi

import (
	"context"
	"net/url"
	"strconv"
)

// DriveFile is one spreadsheet available in the shared Drive folder.
// Its ID is what ImportFromDrive takes as the file reference.
type DriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         any    `json:"size,omitempty"`
}

// DrivePreview is the head of a remote spreadsheet plus a check of its
// columns against the expected registry layout.
type DrivePreview struct {
	Columns         []string            `json:"columns"`
	ExpectedColumns []string            `json:"expected_columns"`
	MissingColumns  []string            `json:"missing_columns"`
	TotalRows       int                 `json:"total_rows"`
	Preview         []map[string]string `json:"preview"`
}

// ExcelFiles lists the spreadsheets in the shared Drive folder, or in
// folderID when given.
func (c *Client) ExcelFiles(ctx context.Context, folderID string) ([]DriveFile, error) {
	q := url.Values{}
	if folderID != "" {
		q.Set("folder_id", folderID)
	}
	var out []DriveFile
	if err := c.get(ctx, "/ldu/excel-files", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExcelFilePreview returns the leading rows of a remote spreadsheet so
// the user can confirm it before importing.
func (c *Client) ExcelFilePreview(ctx context.Context, fileID string, rows int) (*DrivePreview, error) {
	q := url.Values{}
	if rows > 0 {
		q.Set("rows", strconv.Itoa(rows))
	}
	var out DrivePreview
	if err := c.get(ctx, "/ldu/excel-files/"+url.PathEscape(fileID)+"/preview", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResponsableChange is one entry of a device's custody history.
type ResponsableChange struct {
	LduIMEI        string `json:"ldu_imei"`
	AnteriorDNI    string `json:"responsable_anterior_dni,omitempty"`
	AnteriorNombre string `json:"responsable_anterior_nombre,omitempty"`
	NuevoDNI       string `json:"responsable_nuevo_dni"`
	NuevoNombre    string `json:"responsable_nuevo_nombre"`
	Motivo         string `json:"motivo"`
	Comentarios    string `json:"comentarios,omitempty"`
	UsuarioCambio  string `json:"usuario_cambio"`
	ImportacionID  string `json:"importacion_id,omitempty"`
	FechaCambio    string `json:"fecha_cambio,omitempty"`
}

// HistorialResponsables lists a device's custody changes, newest first.
func (c *Client) HistorialResponsables(ctx context.Context, imei string) ([]ResponsableChange, error) {
	var out []ResponsableChange
	if err := c.get(ctx, "/ldu/historial-responsables/"+url.PathEscape(imei), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// report fetches one of the fixed registry report lists.
func (c *Client) report(ctx context.Context, path string) ([]Registro, error) {
	var out []Registro
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReportSinResponsable lists active devices with no assigned holder.
func (c *Client) ReportSinResponsable(ctx context.Context) ([]Registro, error) {
	return c.report(ctx, "/ldu/reportes/sin-responsable")
}

// ReportPendientesDevolucion lists devices awaiting or completing
// return.
func (c *Client) ReportPendientesDevolucion(ctx context.Context) ([]Registro, error) {
	return c.report(ctx, "/ldu/reportes/pendientes-devolucion")
}

// ReportAusentes lists devices missing from the last imported
// spreadsheet.
func (c *Client) ReportAusentes(ctx context.Context) ([]Registro, error) {
	return c.report(ctx, "/ldu/reportes/ausentes")
}

// ReportDanados lists damaged or in-repair devices.
func (c *Client) ReportDanados(ctx context.Context) ([]Registro, error) {
	return c.report(ctx, "/ldu/reportes/danados")
}
