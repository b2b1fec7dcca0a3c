// Package glaze defines the shared vocabulary of kiln: glaze records and the
// enumerations that describe how a combination is applied and fired.
//
// Enumerations are string types so they round-trip through CSV, JSON and
// MCP arguments without translation tables. Each has a Parse function that
// rejects unknown values with ErrInvalidValue.
package glaze

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidValue is returned when an enumerated field holds a value
// outside its documented set.
var ErrInvalidValue = errors.New("invalid value")

// Record is one row of the glaze catalog. Records are immutable once loaded.
type Record struct {
	ID      string  `json:"glaze_id"`
	Brand   string  `json:"brand"`
	Name    string  `json:"name"`
	Flow    float64 `json:"flow_0to1"`
	Opacity float64 `json:"opacity_0to1"`
	Finish  string  `json:"finish"`
}

// DisplayName returns "Brand Name", or just the name when brand is empty.
func (r Record) DisplayName() string {
	if r.Brand == "" {
		return r.Name
	}
	return r.Brand + " " + r.Name
}

// ─── Clear coat ──────────────────────────────────────────────────────────────

// ClearCoat is the optional transparent finishing layer.
type ClearCoat string

const (
	ClearNone       ClearCoat = "none"
	ClearGloss      ClearCoat = "gloss"
	ClearSatinMatte ClearCoat = "satin_matte"
)

// ClearCoats lists every clear coat in display order.
var ClearCoats = []ClearCoat{ClearNone, ClearGloss, ClearSatinMatte}

// FinishName is the nominal finish a clear coat imposes. It returns ""
// for ClearNone, meaning the glaze's own finish shows through.
func (c ClearCoat) FinishName() string {
	switch c {
	case ClearGloss:
		return "gloss"
	case ClearSatinMatte:
		return "satin/matte"
	default:
		return ""
	}
}

// ParseClearCoat parses a clear coat name. The empty string means none.
func ParseClearCoat(s string) (ClearCoat, error) {
	v := ClearCoat(normalize(s))
	if v == "" {
		return ClearNone, nil
	}
	for _, c := range ClearCoats {
		if v == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("clear coat %q: %w", s, ErrInvalidValue)
}

// ─── Application ─────────────────────────────────────────────────────────────

// Application is how the glaze is put on the ware.
type Application string

const (
	Brushed Application = "brushed"
	Dipped  Application = "dipped"
	Poured  Application = "poured"
)

// Applications lists every application method in display order.
var Applications = []Application{Brushed, Dipped, Poured}

// ParseApplication parses an application method name.
func ParseApplication(s string) (Application, error) {
	v := Application(normalize(s))
	for _, a := range Applications {
		if v == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("application %q: %w", s, ErrInvalidValue)
}

// ─── Placement ───────────────────────────────────────────────────────────────

// Placement is where on the piece the combination sits.
type Placement string

const (
	Flat         Placement = "flat"
	VerticalWall Placement = "vertical_wall"
	Rim          Placement = "rim"
	InsideBowl   Placement = "inside_bowl"
	OverTexture  Placement = "over_texture"
)

// Placements lists every placement in display order.
var Placements = []Placement{Flat, VerticalWall, Rim, InsideBowl, OverTexture}

// ParsePlacement parses a placement name.
func ParsePlacement(s string) (Placement, error) {
	v := Placement(normalize(s))
	for _, p := range Placements {
		if v == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("placement %q: %w", s, ErrInvalidValue)
}

// normalize lower-cases and trims an enum value and accepts spaces or
// hyphens in place of underscores ("vertical wall", "satin-matte").
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// ClearCoatNames returns the clear coat values as strings, for MCP enums.
func ClearCoatNames() []string { return names(ClearCoats) }

// ApplicationNames returns the application values as strings.
func ApplicationNames() []string { return names(Applications) }

// PlacementNames returns the placement values as strings.
func PlacementNames() []string { return names(Placements) }

func names[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
