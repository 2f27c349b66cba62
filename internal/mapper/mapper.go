package mapper

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is the mapping state for one source column.
type Entry struct {
	// Header is the raw column header from the file.
	Header string `json:"header"`
	// FieldKey is the destination field, or "" when unmapped.
	FieldKey string `json:"field_key"`
	// Samples holds the first few non-empty values from the column.
	Samples []string `json:"samples,omitempty"`
	// AutoMatched records whether FieldKey came from automatic
	// matching rather than a manual assignment.
	AutoMatched bool `json:"auto_matched"`
}

// Mapping is the full column-to-field assignment for one file.
type Mapping struct {
	catalog *Catalog
	entries []Entry
}

// Propose builds an initial mapping for the given headers. Matching is
// deterministic and conservative: each header is compared against the
// catalog in declaration order, and the first rule that fires wins.
//
// Rules, in order of confidence:
//  1. header equals the field key (case-insensitive)
//  2. header equals the field label (case-insensitive)
//  3. normalized header contains the field key
//
// Headers that match nothing stay unmapped and wait for a manual
// assignment. A wrong guess costs more than a missing one.
func Propose(catalog *Catalog, headers []string, samples map[string][]string) *Mapping {
	m := &Mapping{
		catalog: catalog,
		entries: make([]Entry, len(headers)),
	}
	for i, h := range headers {
		e := Entry{Header: h, Samples: samples[h]}
		if key, ok := match(catalog, h); ok {
			e.FieldKey = key
			e.AutoMatched = true
		}
		m.entries[i] = e
	}
	return m
}

func match(catalog *Catalog, header string) (string, bool) {
	norm := normalizeHeader(header)
	if norm == "" {
		return "", false
	}
	for _, f := range catalog.fields {
		if strings.EqualFold(norm, f.Key) {
			return f.Key, true
		}
	}
	for _, f := range catalog.fields {
		if strings.EqualFold(norm, f.Label) {
			return f.Key, true
		}
	}
	lower := strings.ToLower(norm)
	for _, f := range catalog.fields {
		if strings.Contains(lower, strings.ToLower(f.Key)) {
			return f.Key, true
		}
	}
	return "", false
}

// normalizeHeader strips spreadsheet export artifacts before matching:
// surrounding whitespace, ="..." wrappers, stray quotes, and a leading
// apostrophe some tools add to force text cells.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	if strings.HasPrefix(h, `="`) && strings.HasSuffix(h, `"`) && len(h) >= 3 {
		h = h[2 : len(h)-1]
	}
	h = strings.Trim(h, `"'`)
	h = strings.TrimPrefix(h, "'")
	return strings.TrimSpace(h)
}

// Entries returns the mapping state for every source column.
func (m *Mapping) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Assign maps column i to fieldKey. An empty fieldKey clears the entry.
func (m *Mapping) Assign(i int, fieldKey string) error {
	if i < 0 || i >= len(m.entries) {
		return fmt.Errorf("column index %d out of range", i)
	}
	if fieldKey == "" {
		m.entries[i].FieldKey = ""
		m.entries[i].AutoMatched = false
		return nil
	}
	f, ok := m.catalog.Lookup(fieldKey)
	if !ok {
		return fmt.Errorf("unknown field %q", fieldKey)
	}
	m.entries[i].FieldKey = f.Key
	m.entries[i].AutoMatched = false
	return nil
}

// ClearEntry removes the assignment for column i.
func (m *Mapping) ClearEntry(i int) error {
	return m.Assign(i, "")
}

// IdentifierColumns lists the headers currently mapped to the
// identifier field.
func (m *Mapping) IdentifierColumns() []string {
	id, ok := m.catalog.Identifier()
	if !ok {
		return nil
	}
	var cols []string
	for _, e := range m.entries {
		if e.FieldKey == id.Key {
			cols = append(cols, e.Header)
		}
	}
	return cols
}

// CanImport reports whether the mapping is ready to run: exactly one
// column feeds the identifier field and no field is targeted twice.
func (m *Mapping) CanImport() bool {
	return len(m.IdentifierColumns()) == 1 && len(m.DuplicateTargets()) == 0
}

// DuplicateTargets returns fields targeted by more than one column,
// keyed by field key with the offending headers as values.
func (m *Mapping) DuplicateTargets() map[string][]string {
	byField := make(map[string][]string)
	for _, e := range m.entries {
		if e.FieldKey == "" {
			continue
		}
		byField[e.FieldKey] = append(byField[e.FieldKey], e.Header)
	}
	dups := make(map[string][]string)
	for k, headers := range byField {
		if len(headers) > 1 {
			dups[k] = headers
		}
	}
	return dups
}

// Validate returns human-readable warnings about the current mapping.
// Warnings do not block an import unless CanImport is also false.
func (m *Mapping) Validate() []string {
	var warnings []string

	ids := m.IdentifierColumns()
	switch {
	case len(ids) == 0:
		warnings = append(warnings, "ninguna columna esta mapeada al IMEI")
	case len(ids) > 1:
		warnings = append(warnings, fmt.Sprintf("varias columnas mapeadas al IMEI: %s", strings.Join(ids, ", ")))
	}

	dups := m.DuplicateTargets()
	keys := make([]string, 0, len(dups))
	for k := range dups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f, _ := m.catalog.Lookup(k); f.Identifier {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("campo %q mapeado desde varias columnas: %s", k, strings.Join(dups[k], ", ")))
	}

	mapped := make(map[string]bool)
	for _, e := range m.entries {
		if e.FieldKey != "" {
			mapped[e.FieldKey] = true
		}
	}
	for _, f := range m.catalog.fields {
		if f.Required && !mapped[f.Key] {
			warnings = append(warnings, fmt.Sprintf("campo requerido %q sin mapear", f.Key))
		}
	}
	return warnings
}

// ColumnMapping renders the mapping as header -> field key pairs for
// the import request. Unmapped columns are omitted.
func (m *Mapping) ColumnMapping() map[string]string {
	out := make(map[string]string)
	for _, e := range m.entries {
		if e.FieldKey != "" {
			out[e.Header] = e.FieldKey
		}
	}
	return out
}
