package lduapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RegistroFilter narrows a registry search. Zero values are ignored.
type RegistroFilter struct {
	Query       string
	IMEI        string
	DNI         string
	Region      string
	PuntoVenta  string
	Estado      string
	Responsable string
	Page        int
	Limit       int
}

// SearchRegistros queries the registry with optional filters.
func (c *Client) SearchRegistros(ctx context.Context, f RegistroFilter) (*SearchResult, error) {
	q := url.Values{}
	if f.Query != "" {
		q.Set("query", f.Query)
	}
	if f.IMEI != "" {
		q.Set("imei", f.IMEI)
	}
	if f.DNI != "" {
		q.Set("dni", f.DNI)
	}
	if f.Region != "" {
		q.Set("region", f.Region)
	}
	if f.PuntoVenta != "" {
		q.Set("punto_venta", f.PuntoVenta)
	}
	if f.Estado != "" {
		q.Set("estado", f.Estado)
	}
	if f.Responsable != "" {
		q.Set("responsable", f.Responsable)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var registros []Registro
	u := c.baseURL + "/ldu/registros"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := newGetRequest(ctx, u)
	if err != nil {
		return nil, err
	}

	// Search responses carry pagination at the envelope level, so the
	// usual data-only decode path is not enough here.
	env, err := c.doEnvelope(req)
	if err != nil {
		return nil, err
	}
	if len(env.Data) > 0 {
		if err := decodeData(env.Data, &registros); err != nil {
			return nil, err
		}
	}
	return &SearchResult{
		Registros: registros,
		Total:     env.Total,
		Page:      env.Page,
		Limit:     env.Limit,
	}, nil
}

// GetRegistro fetches one device by IMEI.
func (c *Client) GetRegistro(ctx context.Context, imei string) (*Registro, error) {
	var out Registro
	if err := c.get(ctx, "/ldu/registros/"+url.PathEscape(imei), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegistrosByResponsable lists devices assigned to one DNI.
func (c *Client) RegistrosByResponsable(ctx context.Context, dni string) ([]Registro, error) {
	var out []Registro
	if err := c.get(ctx, "/ldu/registros/responsable/"+url.PathEscape(dni), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reassignment moves one device to a new responsable. Motivo is
// mandatory, the backend records it in the change history.
type Reassignment struct {
	IMEI          string `json:"imei"`
	NuevoDNI      string `json:"nuevo_dni"`
	NuevoNombre   string `json:"nuevo_nombre"`
	NuevoApellido string `json:"nuevo_apellido"`
	Motivo        string `json:"motivo"`
	Comentarios   string `json:"comentarios,omitempty"`
	User          string `json:"user"`
}

// BulkReassignment moves every device held by one responsable to
// another person in a single call.
type BulkReassignment struct {
	DNIAnterior   string `json:"dni_anterior"`
	NuevoDNI      string `json:"nuevo_dni"`
	NuevoNombre   string `json:"nuevo_nombre"`
	NuevoApellido string `json:"nuevo_apellido"`
	Motivo        string `json:"motivo"`
	Comentarios   string `json:"comentarios,omitempty"`
	User          string `json:"user"`
}

// Reassign hands one device to a new responsable.
func (c *Client) Reassign(ctx context.Context, req Reassignment) error {
	if req.IMEI == "" || req.NuevoDNI == "" || req.Motivo == "" {
		return fmt.Errorf("imei, nuevo_dni and motivo are required")
	}
	return c.postJSON(ctx, "/ldu/reasignar", req, nil)
}

// ReassignBulk moves every device from one responsable to another.
func (c *Client) ReassignBulk(ctx context.Context, req BulkReassignment) (int, error) {
	if req.DNIAnterior == "" || req.NuevoDNI == "" || req.Motivo == "" {
		return 0, fmt.Errorf("dni_anterior, nuevo_dni and motivo are required")
	}
	var out struct {
		Reasignados int `json:"reasignados"`
	}
	if err := c.postJSON(ctx, "/ldu/reasignar-masivo", req, &out); err != nil {
		return 0, err
	}
	return out.Reasignados, nil
}

// Responsables lists people holding devices with their counts.
func (c *Client) Responsables(ctx context.Context) ([]Responsable, error) {
	var out []Responsable
	if err := c.get(ctx, "/ldu/responsables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Importaciones lists past import runs, newest first.
func (c *Client) Importaciones(ctx context.Context, limit int) ([]Importacion, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []Importacion
	if err := c.get(ctx, "/ldu/importaciones", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetImportacion fetches one import run with its full result.
func (c *Client) GetImportacion(ctx context.Context, id string) (*Importacion, error) {
	var out Importacion
	if err := c.get(ctx, "/ldu/importaciones/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Auditoria returns recent registry changes, optionally for one IMEI.
func (c *Client) Auditoria(ctx context.Context, imei string, limit int) ([]AuditEntry, error) {
	q := url.Values{}
	if imei != "" {
		q.Set("imei", imei)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []AuditEntry
	if err := c.get(ctx, "/ldu/auditoria", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the registry aggregates for the dashboard.
func (c *Client) Stats(ctx context.Context) (*RegistryStats, error) {
	var out RegistryStats
	if err := c.get(ctx, "/ldu/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
