package core

// tabular.go turns an uploaded blob into a structured table: an ordered
// header row plus ordered data rows. It knows nothing about record types;
// header names and cell contents are the validator's concern.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxFileSize is the maximum accepted upload size. Checked before the
// content is decoded so an oversized file never reaches the parser.
const MaxFileSize int64 = 10 * 1024 * 1024

// Decode errors. Each aborts the pipeline; no partial table is returned.
var (
	ErrMissingFile          = errors.New("no file provided")
	ErrUnsupportedExtension = errors.New("unsupported file type: only .csv files are accepted")
	ErrFileTooLarge         = fmt.Errorf("file exceeds %dMB limit", MaxFileSize/(1024*1024))
	ErrEmptyFile            = errors.New("file is empty")
	ErrNoDataRows           = errors.New("file contains a header row but no data rows")
)

// Table is the decoded form of one upload. Header casing and cell order are
// preserved from the source; individual values are trimmed.
type Table struct {
	Headers []string
	Rows    [][]string
}

// DecodeTable decodes raw upload bytes into a Table.
//
// The gates run in a fixed order: presence, extension, size, emptiness,
// CSV structure, data-row presence. Size is checked before any content is
// read, so an oversized file reports only ErrFileTooLarge even when its
// content is also malformed.
func DecodeTable(fileName string, data []byte) (*Table, error) {
	if data == nil {
		return nil, ErrMissingFile
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return nil, ErrUnsupportedExtension
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	data = stripBOM(sanitizeUTF8(data))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	// encoding/csv handles quoted delimiters and embedded newlines; a naive
	// line split breaks on both. FieldsPerRecord is left unchecked here so
	// the validator can report column-count mismatches per row.
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	table := &Table{Headers: trimCells(records[0])}
	for _, row := range records[1:] {
		if isEmptyRow(row) {
			continue
		}
		table.Rows = append(table.Rows, trimCells(row))
	}
	if len(table.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return table, nil
}

// stripBOM removes a leading UTF-8 byte order mark (common in files saved
// from Excel on Windows).
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD so the CSV
// reader never chokes on mixed encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
