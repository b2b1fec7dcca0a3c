// Package csvtable reads and writes the header-addressed CSV tables kiln
// persists (glaze catalog, correction rules).
//
// Columns are looked up by header name, never by position, so a table
// written by an older version with fewer columns still loads: missing
// columns read as "".
package csvtable

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("csv: missing header row")

// Table is a parsed CSV table with named columns.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Read parses r as a CSV table whose first row is the header.
// Header names are trimmed and lower-cased. Ragged rows are accepted.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	t := &Table{index: make(map[string]int)}
	for i, h := range records[0] {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		t.Header = append(t.Header, name)
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get returns the trimmed cell of row i in column col, or "" when the
// column is absent or the row is short.
func (t *Table) Get(i int, col string) string {
	j, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}

// Write renders header and rows as CSV.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return nil
}

// Encode is Write into a byte slice.
func Encode(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, header, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
