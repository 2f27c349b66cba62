// Package importer drives the spreadsheet import flow: upload,
// analyze, pick a sheet, map columns, run. The heavy lifting (parsing,
// row reconciliation) happens in the backend; a session here holds the
// file bytes and the user's choices between steps.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/mapper"
)

var (
	// ErrNoFile means no file was attached to the session yet.
	ErrNoFile = errors.New("no file uploaded")
	// ErrNoPreview means the sheet has not been previewed, so there
	// is nothing to map.
	ErrNoPreview = errors.New("sheet not previewed")
	// ErrMappingIncomplete blocks a run until exactly one column
	// feeds the IMEI.
	ErrMappingIncomplete = errors.New("mapping has no identifier column")
	// ErrDuplicateTargets blocks a run while two columns feed the
	// same field.
	ErrDuplicateTargets = errors.New("mapping has duplicate target fields")
	// ErrAlreadyRunning rejects a second concurrent run on the same
	// session.
	ErrAlreadyRunning = errors.New("import already running")
)

// Backend is the slice of the LDU client a session needs.
type Backend interface {
	AnalyzeSpreadsheet(ctx context.Context, filename string, file []byte) (*lduapi.SpreadsheetAnalysis, error)
	PreviewSpreadsheet(ctx context.Context, filename string, file []byte, sheet string, rows int) (*lduapi.SpreadsheetPreview, error)
	ImportSpreadsheet(ctx context.Context, filename string, file []byte, sheet string, mapping map[string]string, user string, syncToDrive bool) (*lduapi.ImportResult, error)
	ImportFromDrive(ctx context.Context, fileID string, mapping map[string]string, user string) (*lduapi.ImportResult, error)
}

// sampleRows is how many leading rows a preview requests. Enough to
// judge a column, small enough to stay snappy on big workbooks.
const sampleRows = 10

// Session is one in-flight import. Methods are safe for concurrent
// use; the web layer calls them from different requests as the user
// steps through the flow.
type Session struct {
	ID        uuid.UUID
	User      string
	CreatedAt time.Time

	backend Backend
	catalog *mapper.Catalog

	mu       sync.Mutex
	filename string
	fileData []byte
	sheet    string
	analysis *lduapi.SpreadsheetAnalysis
	preview  *lduapi.SpreadsheetPreview
	mapping  *mapper.Mapping
	result   *lduapi.ImportResult

	running bool
	cancel  context.CancelFunc
}

// NewSession creates an empty session for one user.
func NewSession(backend Backend, catalog *mapper.Catalog, user string) *Session {
	return &Session{
		ID:        uuid.New(),
		User:      user,
		CreatedAt: time.Now(),
		backend:   backend,
		catalog:   catalog,
	}
}

// SetFile attaches the uploaded file and resets downstream state. A
// new file invalidates any earlier sheet choice, preview, or mapping.
func (s *Session) SetFile(filename string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty file %q", filename)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.filename = filename
	s.fileData = data
	s.sheet = ""
	s.analysis = nil
	s.preview = nil
	s.mapping = nil
	s.result = nil
	return nil
}

// Analyze asks the backend for the file's sheet inventory. CSV files
// report a single implicit sheet and skip straight to preview.
func (s *Session) Analyze(ctx context.Context) (*lduapi.SpreadsheetAnalysis, error) {
	s.mu.Lock()
	if s.fileData == nil {
		s.mu.Unlock()
		return nil, ErrNoFile
	}
	filename, data := s.filename, s.fileData
	s.mu.Unlock()

	analysis, err := s.backend.AnalyzeSpreadsheet(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.analysis = analysis
	if analysis.IsCSV {
		s.sheet = ""
	} else if len(analysis.Sheets) == 1 {
		s.sheet = analysis.Sheets[0].Name
	}
	s.mu.Unlock()
	return analysis, nil
}

// SelectSheet picks the sheet to import from a multi-sheet workbook.
func (s *Session) SelectSheet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysis == nil {
		return fmt.Errorf("file not analyzed yet")
	}
	if s.analysis.IsCSV {
		return fmt.Errorf("csv files have no sheets")
	}
	for _, sh := range s.analysis.Sheets {
		if sh.Name == name {
			s.sheet = name
			s.preview = nil
			s.mapping = nil
			return nil
		}
	}
	return fmt.Errorf("unknown sheet %q", name)
}

// Preview fetches the chosen sheet's head rows and proposes an initial
// column mapping from them.
func (s *Session) Preview(ctx context.Context) (*lduapi.SpreadsheetPreview, *mapper.Mapping, error) {
	s.mu.Lock()
	if s.fileData == nil {
		s.mu.Unlock()
		return nil, nil, ErrNoFile
	}
	filename, data, sheet := s.filename, s.fileData, s.sheet
	s.mu.Unlock()

	preview, err := s.backend.PreviewSpreadsheet(ctx, filename, data, sheet, sampleRows)
	if err != nil {
		return nil, nil, err
	}

	samples := make(map[string][]string, len(preview.Columns))
	for _, row := range preview.Preview {
		for _, col := range preview.Columns {
			if v := row[col]; v != "" && len(samples[col]) < 5 {
				samples[col] = append(samples[col], v)
			}
		}
	}
	mapping := mapper.Propose(s.catalog, preview.Columns, samples)

	s.mu.Lock()
	s.preview = preview
	s.mapping = mapping
	s.mu.Unlock()
	return preview, mapping, nil
}

// Mapping returns the session's current mapping, or nil before preview.
func (s *Session) Mapping() *mapper.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapping
}

// AssignColumn maps preview column i to a registry field. Empty
// fieldKey clears the assignment.
func (s *Session) AssignColumn(i int, fieldKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapping == nil {
		return ErrNoPreview
	}
	return s.mapping.Assign(i, fieldKey)
}

// Run executes the import with the current mapping. It blocks until
// the backend finishes or ctx is cancelled. Cancelling abandons the
// wait on this side; a backend already mid-import may still complete.
func (s *Session) Run(ctx context.Context, syncToDrive bool) (*lduapi.ImportResult, error) {
	s.mu.Lock()
	if s.fileData == nil {
		s.mu.Unlock()
		return nil, ErrNoFile
	}
	if s.mapping == nil {
		s.mu.Unlock()
		return nil, ErrNoPreview
	}
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	if len(s.mapping.DuplicateTargets()) > 0 {
		s.mu.Unlock()
		return nil, ErrDuplicateTargets
	}
	if !s.mapping.CanImport() {
		s.mu.Unlock()
		return nil, ErrMappingIncomplete
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	filename, data, sheet := s.filename, s.fileData, s.sheet
	mapping := s.mapping.ColumnMapping()
	user := s.User
	s.mu.Unlock()

	result, err := s.backend.ImportSpreadsheet(runCtx, filename, data, sheet, mapping, user, syncToDrive)
	cancel()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	if err == nil {
		s.result = result
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunRemote triggers an import of a shared-storage spreadsheet by its
// file ID instead of an uploaded file. The session's column mapping,
// when one was built, rides along so the backend maps headers the same
// way a local import would.
func (s *Session) RunRemote(ctx context.Context, fileID string) (*lduapi.ImportResult, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file ID is required")
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	var mapping map[string]string
	if s.mapping != nil {
		mapping = s.mapping.ColumnMapping()
	}
	user := s.User
	s.mu.Unlock()

	result, err := s.backend.ImportFromDrive(runCtx, fileID, mapping, user)
	cancel()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	if err == nil {
		s.result = result
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel aborts a running import, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Result returns the last completed import result, or nil.
func (s *Session) Result() *lduapi.ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Running reports whether an import is in flight.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Close cancels any running import and drops the file bytes.
func (s *Session) Close() {
	s.Cancel()
	s.mu.Lock()
	s.fileData = nil
	s.mu.Unlock()
}
