package lduapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the LDU backend over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Config controls client construction.
type Config struct {
	// BaseURL is the backend root including the /api prefix.
	BaseURL string
	// APIKey, when set, is sent as X-API-Key on every request.
	APIKey string
	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// New builds a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid backend base URL %q", cfg.BaseURL)
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpc:   httpc,
	}, nil
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Detail  string          `json:"detail"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// doEnvelope executes the request and returns the decoded envelope.
// Transport failures wrap ErrConnectivity; error statuses and
// success:false envelopes become a *BackendError.
func (c *Client) doEnvelope(req *http.Request) (*envelope, error) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrConnectivity, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &BackendError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadRequest
		}
		return nil, &BackendError{Status: status, Detail: env.Detail}
	}
	return &env, nil
}

func (c *Client) do(req *http.Request, out any) error {
	env, err := c.doEnvelope(req)
	if err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 {
		return decodeData(env.Data, out)
	}
	return nil
}

func decodeData(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

func newGetRequest(ctx context.Context, url string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// postMultipart uploads a file plus extra form fields.
func (c *Client) postMultipart(ctx context.Context, path, filename string, file []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(file); err != nil {
		return err
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

// AnalyzeSpreadsheet uploads a file and returns its sheet inventory.
func (c *Client) AnalyzeSpreadsheet(ctx context.Context, filename string, file []byte) (*SpreadsheetAnalysis, error) {
	var out SpreadsheetAnalysis
	if err := c.postMultipart(ctx, "/ldu/analyze-excel", filename, file, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviewSpreadsheet returns the headers and leading rows of one sheet.
func (c *Client) PreviewSpreadsheet(ctx context.Context, filename string, file []byte, sheet string, rows int) (*SpreadsheetPreview, error) {
	fields := map[string]string{}
	if sheet != "" {
		fields["sheet_name"] = sheet
	}
	if rows > 0 {
		fields["rows"] = strconv.Itoa(rows)
	}
	var out SpreadsheetPreview
	if err := c.postMultipart(ctx, "/ldu/preview-excel", filename, file, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportSpreadsheet runs a full import of an uploaded file using the
// given column mapping. The backend does the row-by-row reconciliation
// and returns the sync counters when it finishes.
func (c *Client) ImportSpreadsheet(ctx context.Context, filename string, file []byte, sheet string, mapping map[string]string, user string, syncToDrive bool) (*ImportResult, error) {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{
		"column_mapping": string(mappingJSON),
		"user":           user,
		"sync_to_drive":  strconv.FormatBool(syncToDrive),
	}
	if sheet != "" {
		fields["sheet_name"] = sheet
	}
	var out ImportResult
	if err := c.postMultipart(ctx, "/ldu/import-local", filename, file, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportFromDrive asks the backend to pull a spreadsheet from shared
// storage by its file ID and import it with the given column mapping.
func (c *Client) ImportFromDrive(ctx context.Context, fileID string, mapping map[string]string, user string) (*ImportResult, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file ID is required")
	}
	body := struct {
		FileID        string            `json:"file_id"`
		ColumnMapping map[string]string `json:"column_mapping,omitempty"`
		User          string            `json:"user"`
	}{fileID, mapping, user}
	var out ImportResult
	if err := c.postJSON(ctx, "/ldu/import", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingConflicts lists unresolved conflicts in the order the backend
// serves them, most recently raised first.
func (c *Client) PendingConflicts(ctx context.Context, limit int) ([]Conflict, error) {
	q := url.Values{"estado": {"pendiente"}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []Conflict
	if err := c.get(ctx, "/ldu/conflictos", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConflictSummary returns the aggregate pending-conflict counts.
func (c *Client) ConflictSummary(ctx context.Context) (*ConflictSummary, error) {
	var out ConflictSummary
	if err := c.get(ctx, "/ldu/conflictos/resumen", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveConflict settles one conflict with the given action.
func (c *Client) ResolveConflict(ctx context.Context, id, action, user string) error {
	if action != ActionKeep && action != ActionOverwrite {
		return fmt.Errorf("invalid resolution action %q", action)
	}
	body := map[string]string{"accion": action, "user": user}
	return c.postJSON(ctx, "/ldu/conflictos/"+url.PathEscape(id)+"/resolver", body, nil)
}

// ResolveAllConflicts settles every pending conflict with one action.
func (c *Client) ResolveAllConflicts(ctx context.Context, action, user string) (int, error) {
	if action != ActionKeep && action != ActionOverwrite {
		return 0, fmt.Errorf("invalid resolution action %q", action)
	}
	body := map[string]string{"accion": action, "user": user}
	var out struct {
		Resueltos int `json:"resueltos"`
	}
	if err := c.postJSON(ctx, "/ldu/conflictos/resolver-todos", body, &out); err != nil {
		return 0, err
	}
	return out.Resueltos, nil
}
