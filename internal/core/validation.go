package core

// validation.go is the row-validation engine. One generic engine serves
// every record type; the per-type rules live in Schema values (see the
// schema package).
//
// Batch validation is staged:
//  1. header presence (order-independent); missing headers abort the batch
//  2. per row: column count, then required + cross-field rules, then
//     length bounds, then format/enum checks
// Later stages run only when earlier ones were clean for that row, so a
// truncated row never also reports "invalid email" noise. Every error a
// row legitimately reaches is collected; one row's errors never block
// another row.
//
// Malformed input is this engine's expected domain: it never panics on bad
// data, only on schema misconfiguration.

import (
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled format rules (avoids recompilation on each call).
var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	numberRegex = regexp.MustCompile(`^[0-9]+$`)
)

// phoneStripper removes the punctuation people type into phone numbers.
var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")

// RowError aggregates every message for one failing row. Row is 1-based
// over data rows, matching the row numbers users see in their spreadsheet.
// Row 0 marks a table-level error (a missing header).
type RowError struct {
	Row      int
	Messages []string
}

// Error renders the aggregated message. The "errors for row N: ..." format
// is a wire contract: callers parse it, so it must not change shape.
func (e RowError) Error() string {
	if e.Row == 0 {
		return strings.Join(e.Messages, ", ")
	}
	return fmt.Sprintf("errors for row %d: %s", e.Row, strings.Join(e.Messages, ", "))
}

// BatchResult is the outcome of validating one table.
// Errors preserves row order; Accepted preserves the relative order of
// rows that passed.
type BatchResult[T any] struct {
	Errors   []RowError
	Accepted []T
}

// ValidateTable validates every row of table against the schema.
//
// If any expected header is absent the result carries one error per
// missing header and no row is processed. Otherwise each row is validated
// independently: a clean row binds to one accepted record, a dirty row
// contributes exactly one RowError.
func ValidateTable[T any](s Schema[T], table *Table) BatchResult[T] {
	if s.Bind == nil {
		panic("core: schema " + s.Entity + " has no Bind function")
	}

	var result BatchResult[T]

	// Header presence is order-independent; positions are resolved from
	// the header row actually uploaded.
	idx := makeHeaderIndex(table.Headers)
	for _, f := range s.Fields {
		if _, ok := idx[strings.ToLower(f.Name)]; !ok {
			result.Errors = append(result.Errors, RowError{
				Messages: []string{fmt.Sprintf("missing required column %q", f.Name)},
			})
		}
	}
	if len(result.Errors) > 0 {
		return result
	}

	headerCount := len(table.Headers)
	for i, row := range table.Rows {
		rowNum := i + 1

		if len(row) != headerCount {
			result.Errors = append(result.Errors, RowError{
				Row:      rowNum,
				Messages: []string{fmt.Sprintf("expected %d columns, got %d", headerCount, len(row))},
			})
			continue
		}

		vals := make(map[string]string, len(s.Fields))
		for _, f := range s.Fields {
			vals[f.Name] = row[idx[strings.ToLower(f.Name)]]
		}

		if msgs := checkValues(s, vals); len(msgs) > 0 {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Messages: msgs})
			continue
		}
		result.Accepted = append(result.Accepted, s.Bind(vals))
	}

	return result
}

// ValidateRecord applies the field-level stages to one manually-entered
// record. There is no tabular context, so messages come back flat.
// On success the bound entity is returned with ok = true.
func ValidateRecord[T any](s Schema[T], vals map[string]string) ([]string, T, bool) {
	if s.Bind == nil {
		panic("core: schema " + s.Entity + " has no Bind function")
	}

	clean := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		clean[f.Name] = strings.TrimSpace(vals[f.Name])
	}

	var zero T
	if msgs := checkValues(s, clean); len(msgs) > 0 {
		return msgs, zero, false
	}
	return nil, s.Bind(clean), true
}

// checkValues runs the required, length, and format/enum stages over one
// row's mapped values. Each stage runs only when the previous one was
// clean; within a stage every independent violation is reported.
// Enum matches are canonicalized in place so Bind sees schema casing.
func checkValues[T any](s Schema[T], vals map[string]string) []string {
	var msgs []string

	for _, f := range s.Fields {
		if f.Required && vals[f.Name] == "" {
			msgs = append(msgs, f.Label+" is required")
		}
	}
	for _, rule := range s.Rules {
		msgs = append(msgs, rule(vals)...)
	}
	if len(msgs) > 0 {
		return msgs
	}

	for _, f := range s.Fields {
		if f.MaxLen > 0 && len(vals[f.Name]) > f.MaxLen {
			msgs = append(msgs, fmt.Sprintf("%s must be %d characters or fewer", f.Label, f.MaxLen))
		}
	}
	if len(msgs) > 0 {
		return msgs
	}

	for _, f := range s.Fields {
		v := vals[f.Name]
		if v == "" {
			continue
		}
		switch f.Kind {
		case FieldEmail:
			if !emailRegex.MatchString(v) {
				msgs = append(msgs, "Invalid email address")
			}
		case FieldPhone:
			if !validPhone(v) {
				msgs = append(msgs, "Invalid phone number")
			}
		case FieldEnum:
			match := ""
			for _, ev := range f.Enum {
				if strings.EqualFold(ev, v) {
					match = ev
					break
				}
			}
			if match == "" {
				msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", f.Label, strings.Join(f.Enum, ", ")))
			} else {
				vals[f.Name] = match
			}
		case FieldNumber:
			if !numberRegex.MatchString(v) {
				msgs = append(msgs, f.Label+" must be a number")
			}
		}
	}

	return msgs
}

// validPhone accepts 7 to 15 digits after stripping common punctuation.
func validPhone(v string) bool {
	digits := phoneStripper.Replace(v)
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	return numberRegex.MatchString(digits)
}
