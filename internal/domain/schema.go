package domain

import (
	"fmt"
	"strings"
)

// FieldSpec describes one fixed-length column. Slack is the number of trailing
// bytes a patch added to Length that must be whitespace; Synthetic fields are
// padding inserted by a patch and are never emitted in decoded records.
type FieldSpec struct {
	Name      string `json:"name" yaml:"name"`
	Length    int    `json:"length" yaml:"length"`
	Slack     int    `json:"slack,omitempty" yaml:"-"`
	Synthetic bool   `json:"synthetic,omitempty" yaml:"-"`
}

// Schema is an ordered, immutable list of fields for one (kind, era). Adapted
// schemas also remember which patch rules produced them.
type Schema struct {
	kind    RecordKind
	era     Era
	fields  []FieldSpec
	index   map[string]int
	patches []string
}

// NewSchema validates fields and returns an immutable Schema.
func NewSchema(kind RecordKind, era Era, fields []FieldSpec) (*Schema, error) {
	return newSchema(kind, era, fields, nil)
}

func newSchema(kind RecordKind, era Era, fields []FieldSpec, patches []string) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s/%s has no fields", ErrInvalidSchema, kind, era)
	}
	index := make(map[string]int, len(fields))
	own := make([]FieldSpec, len(fields))
	for i, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		if f.Length <= 0 {
			return nil, fmt.Errorf("%w: field %q has length %d", ErrInvalidSchema, f.Name, f.Length)
		}
		if f.Slack < 0 || f.Slack > f.Length {
			return nil, fmt.Errorf("%w: field %q has slack %d of %d", ErrInvalidSchema, f.Name, f.Slack, f.Length)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		index[f.Name] = i
		own[i] = f
	}
	return &Schema{
		kind:    kind,
		era:     era,
		fields:  own,
		index:   index,
		patches: append([]string(nil), patches...),
	}, nil
}

// Derive builds a new Schema from s with the given fields, recording patchID as applied.
func (s *Schema) Derive(fields []FieldSpec, patchID string) (*Schema, error) {
	patches := append(append([]string(nil), s.patches...), patchID)
	return newSchema(s.kind, s.era, fields, patches)
}

func (s *Schema) Kind() RecordKind { return s.kind }
func (s *Schema) Era() Era         { return s.era }
func (s *Schema) NumFields() int   { return len(s.fields) }

// Fields returns a copy of the field list.
func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Field returns the i-th field.
func (s *Schema) Field(i int) FieldSpec { return s.fields[i] }

// Index returns the position of the named field.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Patches returns the IDs of the patch rules applied to produce this schema.
func (s *Schema) Patches() []string {
	return append([]string(nil), s.patches...)
}

// HasPatch reports whether rule id was already applied.
func (s *Schema) HasPatch(id string) bool {
	for _, p := range s.patches {
		if p == id {
			return true
		}
	}
	return false
}

// Width is the sum of all field lengths, i.e. the record width without terminator.
func (s *Schema) Width() int {
	w := 0
	for _, f := range s.fields {
		w += f.Length
	}
	return w
}

// Columns returns the names emitted in decoded records, in schema order.
func (s *Schema) Columns() *Columns {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		if !f.Synthetic {
			names = append(names, f.Name)
		}
	}
	return NewColumns(names)
}
