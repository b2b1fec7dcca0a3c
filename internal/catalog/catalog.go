// Package catalog holds the read-only glaze inventory.
//
// The catalog is loaded once per process from a CSV table with the columns
// glaze_id, brand, name, flow_0to1, opacity_0to1, finish and indexed by id.
// Malformed numeric cells are recovered as 0.0 and reported through the
// Defaulted list, and values outside 0..1 are clamped and reported through
// Clamped, so the caller can log them. A missing id column or a row without
// an id is a structural failure.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/HendryAvila/kiln/internal/csvtable"
	"github.com/HendryAvila/kiln/internal/glaze"
)

// Column names of the catalog table.
const (
	ColID      = "glaze_id"
	ColBrand   = "brand"
	ColName    = "name"
	ColFlow    = "flow_0to1"
	ColOpacity = "opacity_0to1"
	ColFinish  = "finish"
)

var (
	// ErrNotFound is returned by Lookup for an id that is not in the catalog.
	ErrNotFound = errors.New("glaze not found")
	// ErrMissingColumn is returned when the table has no glaze_id column.
	ErrMissingColumn = errors.New("catalog: missing glaze_id column")
)

// Defaulted records one numeric cell that could not be parsed and was
// replaced by 0.0.
type Defaulted struct {
	GlazeID string
	Column  string
	Raw     string
}

// Clamped records one numeric cell outside 0..1 that was pulled to the
// nearest bound.
type Clamped struct {
	GlazeID string
	Column  string
	Raw     string
	Value   float64
}

// Catalog is an immutable id-indexed set of glaze records.
type Catalog struct {
	records []glaze.Record
	byID    map[string]int

	// Defaulted lists numeric cells recovered during load.
	Defaulted []Defaulted
	// Clamped lists numeric cells pulled into 0..1 during load.
	Clamped []Clamped
	// Duplicates lists ids that appeared more than once; the first row wins.
	Duplicates []string
}

// New builds a catalog from records. Later records with an id already
// seen are ignored and reported in Duplicates.
func New(records []glaze.Record) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(records))}
	for _, r := range records {
		if _, dup := c.byID[r.ID]; dup {
			c.Duplicates = append(c.Duplicates, r.ID)
			continue
		}
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return c
}

// Load reads a catalog CSV file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a catalog CSV table from r.
func Read(r io.Reader) (*Catalog, error) {
	tbl, err := csvtable.Read(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if !tbl.Has(ColID) {
		return nil, ErrMissingColumn
	}

	var (
		records   []glaze.Record
		defaulted []Defaulted
		clamped   []Clamped
	)
	for i := range tbl.Rows {
		id := tbl.Get(i, ColID)
		if id == "" {
			return nil, fmt.Errorf("catalog: row %d: empty %s", i+2, ColID)
		}
		rec := glaze.Record{
			ID:     id,
			Brand:  tbl.Get(i, ColBrand),
			Name:   tbl.Get(i, ColName),
			Finish: strings.ToLower(tbl.Get(i, ColFinish)),
		}
		if rec.Name == "" {
			rec.Name = id
		}

		rec.Flow = unitCell(id, ColFlow, tbl.Get(i, ColFlow), &defaulted, &clamped)
		rec.Opacity = unitCell(id, ColOpacity, tbl.Get(i, ColOpacity), &defaulted, &clamped)
		records = append(records, rec)
	}

	c := New(records)
	c.Defaulted = defaulted
	c.Clamped = clamped
	return c, nil
}

// unitCell parses a 0..1 column. Unparseable cells become 0 and land in
// defaulted; out-of-range values are clamped and land in clamped.
func unitCell(id, col, raw string, defaulted *[]Defaulted, clamped *[]Clamped) float64 {
	v, bad := glaze.ParseFloat(raw, 0)
	if bad {
		*defaulted = append(*defaulted, Defaulted{GlazeID: id, Column: col, Raw: raw})
		return v
	}
	if c := min(max(v, 0), 1); c != v {
		*clamped = append(*clamped, Clamped{GlazeID: id, Column: col, Raw: raw, Value: c})
		return c
	}
	return v
}

// Lookup returns the record for id, or ErrNotFound.
func (c *Catalog) Lookup(id string) (glaze.Record, error) {
	i, ok := c.byID[id]
	if !ok {
		return glaze.Record{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.records[i], nil
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns the records in load order. The slice is a copy.
func (c *Catalog) All() []glaze.Record {
	out := make([]glaze.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of distinct glazes.
func (c *Catalog) Len() int { return len(c.records) }

// Search returns records whose id, brand or name contains query
// (case-insensitive), sorted by id. An empty query returns everything.
func (c *Catalog) Search(query string) []glaze.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []glaze.Record
	for _, r := range c.records {
		if q == "" ||
			strings.Contains(strings.ToLower(r.ID), q) ||
			strings.Contains(strings.ToLower(r.Brand), q) ||
			strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
