package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Columns is an ordered, shared list of column names with a name index.
type Columns struct {
	names []string
	index map[string]int
}

// NewColumns builds a Columns set from names in order.
func NewColumns(names []string) *Columns {
	c := &Columns{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, n := range c.names {
		c.index[n] = i
	}
	return c
}

func (c *Columns) Len() int { return len(c.names) }

// Names returns a copy of the column names.
func (c *Columns) Names() []string { return append([]string(nil), c.names...) }

func (c *Columns) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// RawRecord is one decoded line: trimmed string values in schema field order.
// Index is the zero-based record position in the file and Line the physical
// line number its first byte starts on.
type RawRecord struct {
	cols   *Columns
	Values []string
	Index  int
	Line   int
}

// NewRawRecord pairs values with cols. len(values) must equal cols.Len().
func NewRawRecord(cols *Columns, values []string, index, line int) RawRecord {
	return RawRecord{cols: cols, Values: values, Index: index, Line: line}
}

func (r RawRecord) Columns() *Columns { return r.cols }

// Get returns the value of the named column and whether the column exists.
func (r RawRecord) Get(name string) (string, bool) {
	if r.cols == nil {
		return "", false
	}
	i, ok := r.cols.index[name]
	if !ok {
		return "", false
	}
	return r.Values[i], true
}

// Present reports whether the named column exists and holds a non-empty value.
func (r RawRecord) Present(name string) bool {
	v, ok := r.Get(name)
	return ok && v != ""
}

// Set overwrites the named column. It returns false if the column does not exist.
func (r RawRecord) Set(name, value string) bool {
	if r.cols == nil {
		return false
	}
	i, ok := r.cols.index[name]
	if !ok {
		return false
	}
	r.Values[i] = value
	return true
}

// Clone returns a copy whose Values may be modified independently.
func (r RawRecord) Clone() RawRecord {
	r.Values = append([]string(nil), r.Values...)
	return r
}

// Map returns the record as a name→value map.
func (r RawRecord) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	if r.cols == nil {
		return m
	}
	for i, n := range r.cols.names {
		m[n] = r.Values[i]
	}
	return m
}

// MarshalJSON encodes the record as an object whose keys keep schema order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.cols != nil {
		for i, n := range r.cols.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(r.Values[i])
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PrimaryKey is the tuple of key-column values identifying one logical record.
type PrimaryKey []string

// String renders the key with '|' separators.
func (k PrimaryKey) String() string { return strings.Join(k, "|") }

// MapKey is an unambiguous string form for use as a map key.
func (k PrimaryKey) MapKey() string { return strings.Join(k, "\x1f") }

// KeyOf extracts the primary key of r for the given columns.
func KeyOf(r RawRecord, columns []string) (PrimaryKey, error) {
	key := make(PrimaryKey, len(columns))
	for i, c := range columns {
		v, ok := r.Get(c)
		if !ok {
			return nil, fmt.Errorf("%w: primary key column %q", ErrUnknownField, c)
		}
		key[i] = v
	}
	return key, nil
}

// DuplicateGroup holds all records sharing one PrimaryKey, in file order.
type DuplicateGroup struct {
	Key     PrimaryKey
	Index   int
	Members []RawRecord
}

// Validate checks the group-size invariant.
func (g DuplicateGroup) Validate() error {
	if len(g.Members) < 2 {
		return fmt.Errorf("%w: key %s has %d members", ErrInvalidGroup, g.Key, len(g.Members))
	}
	return nil
}
