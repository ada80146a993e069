// Package forms holds typed form definitions and the controller that
// drives a form through editing, validation and acceptance.
package forms

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when an operation names a field that the
// definition does not declare.
var ErrUnknownField = errors.New("forms: unknown field")

// Definition is the ordered list of fields making up one form.
type Definition struct {
	fields []Field
	index  map[string]int
}

// NewDefinition creates a definition. Field order is kept for rendering,
// issue ordering and preview.
func NewDefinition(fields ...Field) Definition {
	def := Definition{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if _, dup := def.index[f.Name]; dup {
			panic(fmt.Sprintf("forms: duplicate field %q", f.Name))
		}
		def.index[f.Name] = len(def.fields)
		def.fields = append(def.fields, f)
	}
	return def
}

// Field returns the named field.
func (d Definition) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Fields returns the fields in declaration order.
func (d Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Names returns the field names in declaration order.
func (d Definition) Names() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}
	return names
}

// Position returns the declaration index of a field, or -1.
func (d Definition) Position(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Defaults returns fresh values holding every field's default.
func (d Definition) Defaults() Values {
	v := make(Values, len(d.fields))
	for _, f := range d.fields {
		v[f.Name] = f.Default
	}
	return v
}
