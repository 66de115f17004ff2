package core

// schema.go defines the declarative field schema the validators run against.
//
// A Schema is an explicit value passed into validation, never process-global
// state: instantiating the same engine for a different record type (people,
// rooms) is just a different Schema value. The schema names the expected
// header row, the per-field constraints, and how a clean row binds to the
// target entity.

import "strings"

// FieldKind is the format rule applied to a field in the format/enum stage.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldEmail
	FieldPhone
	FieldEnum
	FieldNumber
)

// FieldSpec defines the constraints for a single column.
type FieldSpec struct {
	Name     string    // header name, exact casing as published (e.g. "fullName")
	Label    string    // user-facing name used in error messages (e.g. "Full name")
	Kind     FieldKind // format rule, checked last
	Required bool      // blank value is an error
	MaxLen   int       // maximum length; 0 means unbounded
	Enum     []string  // valid values for FieldEnum, matched case-insensitively
}

// CrossRule checks a constraint spanning multiple fields of one row.
// It runs in the required stage and returns one message per violation.
type CrossRule func(vals map[string]string) []string

// Schema describes one record type for validation: its expected headers,
// per-field rules, cross-field rules, and the binding to the entity type.
type Schema[T any] struct {
	Entity string      // record type name, e.g. "person"
	Fields []FieldSpec // in published header order
	Rules  []CrossRule
	Bind   func(vals map[string]string) T // called only on fully clean rows
}

// Headers returns the expected header row in published order.
func (s Schema[T]) Headers() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// headerIndex maps lowercased header names to their column position.
// Built once per table so row mapping is a fixed-position lookup.
type headerIndex map[string]int

func makeHeaderIndex(headers []string) headerIndex {
	idx := make(headerIndex, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}
