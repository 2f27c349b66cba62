package mapper

import (
	"reflect"
	"testing"
)

func TestProposeMatchesKnownHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    map[string]string
	}{
		{
			name:    "standard export headers",
			headers: []string{"IMEI", "MODEL", "City", "POS_vv"},
			want: map[string]string{
				"IMEI":   "imei",
				"MODEL":  "modelo",
				"City":   "region",
				"POS_vv": "punto_venta",
			},
		},
		{
			name:    "key match over label match",
			headers: []string{"imei", "Modelo", "Supervisor Name"},
			want: map[string]string{
				"imei":            "imei",
				"Modelo":          "modelo",
				"Supervisor Name": "supervisor",
			},
		},
		{
			name:    "unknown headers stay unmapped",
			headers: []string{"Dispositivo", "Región"},
			want:    map[string]string{},
		},
		{
			name:    "mixed case and whitespace",
			headers: []string{"  Imei  ", "hc_real", "Observation"},
			want: map[string]string{
				"  Imei  ":    "imei",
				"hc_real":     "cobertura_valor",
				"Observation": "observaciones",
			},
		},
		{
			name:    "export artifacts stripped before matching",
			headers: []string{`="IMEI"`, `"DNI"`},
			want: map[string]string{
				`="IMEI"`: "imei",
				`"DNI"`:   "responsable_dni",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Propose(DefaultCatalog(), tt.headers, nil)
			got := map[string]string{}
			for _, e := range m.Entries() {
				if e.FieldKey != "" {
					got[e.Header] = e.FieldKey
					if !e.AutoMatched {
						t.Errorf("entry %q not flagged as auto matched", e.Header)
					}
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Propose() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProposeIsDeterministic(t *testing.T) {
	headers := []string{"IMEI", "Tipo", "Canal", "USO", "REG"}
	first := Propose(DefaultCatalog(), headers, nil).Entries()
	for i := 0; i < 10; i++ {
		again := Propose(DefaultCatalog(), headers, nil).Entries()
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different mapping: %v vs %v", i, again, first)
		}
	}
}

func TestCanImportRequiresSingleIdentifier(t *testing.T) {
	m := Propose(DefaultCatalog(), []string{"Columna A", "Columna B"}, nil)
	if m.CanImport() {
		t.Fatal("CanImport() = true with no identifier mapped")
	}

	if err := m.Assign(0, "imei"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !m.CanImport() {
		t.Fatal("CanImport() = false with one identifier mapped")
	}

	if err := m.Assign(1, "imei"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if m.CanImport() {
		t.Fatal("CanImport() = true with two identifier columns")
	}

	if err := m.ClearEntry(1); err != nil {
		t.Fatalf("ClearEntry: %v", err)
	}
	if !m.CanImport() {
		t.Fatal("CanImport() = false after clearing duplicate")
	}
}

func TestDuplicateTargetsBlockImport(t *testing.T) {
	m := Propose(DefaultCatalog(), []string{"IMEI", "Col X", "Col Y"}, nil)
	if err := m.Assign(1, "modelo"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := m.Assign(2, "modelo"); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	dups := m.DuplicateTargets()
	if got := dups["modelo"]; !reflect.DeepEqual(got, []string{"Col X", "Col Y"}) {
		t.Errorf("DuplicateTargets()[modelo] = %v", got)
	}
	if m.CanImport() {
		t.Error("CanImport() = true with duplicate targets")
	}
}

func TestAssignRejectsUnknownField(t *testing.T) {
	m := Propose(DefaultCatalog(), []string{"IMEI"}, nil)
	if err := m.Assign(0, "no_such_field"); err == nil {
		t.Error("Assign accepted unknown field key")
	}
	if err := m.Assign(5, "imei"); err == nil {
		t.Error("Assign accepted out-of-range index")
	}
}

func TestColumnMapping(t *testing.T) {
	m := Propose(DefaultCatalog(), []string{"IMEI", "Desconocida", "MODEL"}, nil)
	want := map[string]string{"IMEI": "imei", "MODEL": "modelo"}
	if got := m.ColumnMapping(); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnMapping() = %v, want %v", got, want)
	}
}

func TestValidateWarnings(t *testing.T) {
	m := Propose(DefaultCatalog(), []string{"Col A"}, nil)
	warnings := m.Validate()
	if len(warnings) == 0 {
		t.Fatal("expected warnings for empty mapping")
	}
}

func TestIMEIValidation(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"356938035643809", true},
		{"35-693803-564380-9", true},
		{"35693803564380", true},
		{"3569380356438091", true},
		{"123", false},
		{"", false},
		{"abcdef", false},
		{"35693803564380912345", false},
	}
	for _, tt := range tests {
		if got := ValidIMEI(tt.raw); got != tt.want {
			t.Errorf("ValidIMEI(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCheckIdentifierSamples(t *testing.T) {
	valid, invalid := CheckIdentifierSamples([]string{
		"356938035643809", "  ", "Samsung A52", "867530912345678",
	})
	if valid != 2 || invalid != 1 {
		t.Errorf("CheckIdentifierSamples() = (%d, %d), want (2, 1)", valid, invalid)
	}
}
