// Package mapper handles column mapping between imported spreadsheets and
// the device registry fields. Incoming files come from several carriers
// and distributors, each with its own header conventions, so headers are
// matched against a field catalog and any leftovers are resolved by hand.
package mapper

import "strings"

// Field describes one destination field in the device registry.
type Field struct {
	// Key is the canonical registry column name.
	Key string `json:"key"`
	// Label is the header name most source files use for this field.
	Label string `json:"label"`
	// Identifier marks the field as the row identity (the IMEI).
	// Exactly one mapped column must target an identifier field before
	// an import can run.
	Identifier bool `json:"identifier"`
	// Required fields produce a warning when left unmapped.
	Required bool `json:"required"`
	// Description is shown in the mapping UI next to the field name.
	Description string `json:"description,omitempty"`
}

// Catalog is an ordered set of destination fields. Order matters: when a
// header could match more than one field, the first catalog entry wins.
type Catalog struct {
	fields []Field
	byKey  map[string]Field
}

// NewCatalog builds a catalog from an ordered field list.
func NewCatalog(fields []Field) *Catalog {
	c := &Catalog{
		fields: fields,
		byKey:  make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		c.byKey[strings.ToLower(f.Key)] = f
	}
	return c
}

// DefaultCatalog returns the registry fields for LDU device imports.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Field{
		{Key: "imei", Label: "IMEI", Identifier: true, Required: true, Description: "Identificador del equipo (14-16 digitos)"},
		{Key: "modelo", Label: "MODEL", Required: true, Description: "Modelo del equipo"},
		{Key: "region", Label: "City", Description: "Region o ciudad"},
		{Key: "punto_venta", Label: "POS_vv", Description: "Punto de venta"},
		{Key: "nombre_ruta", Label: "Name_Ruta", Description: "Nombre de la ruta"},
		{Key: "cobertura_valor", Label: "HC_Real", Description: "Valor de cobertura"},
		{Key: "canal", Label: "Canal", Description: "Canal comercial"},
		{Key: "tipo", Label: "Tipo", Description: "Tipo de equipo"},
		{Key: "campo_reg", Label: "REG", Description: "Marca de registro"},
		{Key: "campo_ok", Label: "OK", Description: "Marca de verificacion"},
		{Key: "uso", Label: "USO", Description: "Uso asignado"},
		{Key: "observaciones", Label: "OBSERVATION", Description: "Observaciones"},
		{Key: "estado", Label: "Estado", Description: "Estado del registro"},
		{Key: "responsable_dni", Label: "DNI", Description: "DNI del responsable"},
		{Key: "responsable_nombre", Label: "First_Name", Description: "Nombre del responsable"},
		{Key: "responsable_apellido", Label: "Last_Name", Description: "Apellido del responsable"},
		{Key: "supervisor", Label: "Supervisor", Description: "Supervisor asignado"},
	})
}

// Fields returns the catalog fields in declaration order.
func (c *Catalog) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Lookup finds a field by key. Keys are case-insensitive.
func (c *Catalog) Lookup(key string) (Field, bool) {
	f, ok := c.byKey[strings.ToLower(key)]
	return f, ok
}

// Identifier returns the catalog's identifier field.
func (c *Catalog) Identifier() (Field, bool) {
	for _, f := range c.fields {
		if f.Identifier {
			return f, true
		}
	}
	return Field{}, false
}
