// Package domain defines the shared value types of the content generation
// engine (records, field schemas, requests, parsed updates, comparisons) and
// the persistence models mapped with GORM. Value types in this file are plain
// data: they carry no behavior beyond simple accessors and are safe to copy.
package domain

// SemanticType classifies what kind of value a field holds. The parser uses
// it to pick a cleanup routine; the comparator and prompt builder treat it as
// descriptive metadata.
type SemanticType string

const (
	TypeText     SemanticType = "text"
	TypeRichText SemanticType = "richText"
	TypeNumber   SemanticType = "number"
	TypeDate     SemanticType = "date"
	TypeEnum     SemanticType = "enum"
	TypeList     SemanticType = "list"
	TypeEmail    SemanticType = "email"
	TypeURL      SemanticType = "url"
)

// Valid reports whether t is one of the known semantic types.
func (t SemanticType) Valid() bool {
	switch t {
	case TypeText, TypeRichText, TypeNumber, TypeDate, TypeEnum, TypeList, TypeEmail, TypeURL:
		return true
	}
	return false
}

// SingleLine reports whether values of this type are expected to fit on one
// line (line breaks are stripped during cleanup).
func (t SemanticType) SingleLine() bool {
	switch t {
	case TypeText, TypeNumber, TypeDate, TypeEnum, TypeEmail, TypeURL:
		return true
	}
	return false
}

// FieldDefinition describes one editable field of a content type. Definitions
// are immutable once loaded from the catalog.
//
// Excluded marks fields the engine must never touch (system fields, slugs,
// publish state). An excluded field is rejected at request validation and
// silently dropped from parsed model output.
type FieldDefinition struct {
	Name        string       `yaml:"name" json:"name"`
	DisplayName string       `yaml:"display_name" json:"display_name"`
	Type        SemanticType `yaml:"type" json:"type"`
	Excluded    bool         `yaml:"excluded" json:"excluded"`
	// MaxLength caps the generated value in runes; 0 means unlimited.
	MaxLength int `yaml:"max_length" json:"max_length,omitempty"`
	// Guidance is an optional per-field hint included in prompts.
	Guidance string `yaml:"guidance" json:"-"`
}

// ContentRecord maps field names to their current string values. The engine
// treats records as snapshots: it never mutates one it was handed, it returns
// fresh copies or patches.
type ContentRecord map[string]string

// Clone returns an independent copy of the record.
func (r ContentRecord) Clone() ContentRecord {
	out := make(ContentRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record equal to r with every entry of patch applied.
// Neither input is mutated.
func (r ContentRecord) Merge(patch ContentRecord) ContentRecord {
	out := r.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Equal reports whether two records hold exactly the same fields and values.
func (r ContentRecord) Equal(other ContentRecord) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
