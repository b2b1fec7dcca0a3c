package rules

import (
	"fmt"
	"io"

	"github.com/HendryAvila/kiln/internal/csvtable"
	"github.com/HendryAvila/kiln/internal/glaze"
)

// Columns is the persisted column order of the rule table.
var Columns = []string{
	"base_glaze_id", "over_glaze_id", "clear_coat",
	"run_risk_delta", "lighten_factor", "cover_factor", "variegation_boost",
	"image_url", "local_image", "preview_base_hex", "preview_overlay_hex",
	"reference_url", "notes",
}

// DefaultedCell is a numeric cell that failed to parse and was read as 0.
type DefaultedCell struct {
	Row    int
	Column string
	Raw    string
}

// decode reads rule rows from r. Missing columns read as "" and
// malformed numeric cells as 0.
func decode(r io.Reader) ([]Rule, []DefaultedCell, error) {
	tbl, err := csvtable.Read(r)
	if err != nil {
		return nil, nil, err
	}

	var (
		out       []Rule
		defaulted []DefaultedCell
	)
	num := func(i int, col string) float64 {
		raw := tbl.Get(i, col)
		v, bad := glaze.ParseFloat(raw, 0)
		// An absent cell is an unset delta, not a malformed one.
		if bad && raw != "" {
			defaulted = append(defaulted, DefaultedCell{Row: i + 2, Column: col, Raw: raw})
		}
		return v
	}
	for i := range tbl.Rows {
		cc := glaze.ClearCoat(tbl.Get(i, "clear_coat"))
		if parsed, err := glaze.ParseClearCoat(string(cc)); err == nil {
			cc = parsed
		}
		out = append(out, Rule{
			BaseGlazeID:       tbl.Get(i, "base_glaze_id"),
			OverlayGlazeID:    tbl.Get(i, "over_glaze_id"),
			ClearCoat:         cc,
			RunRiskDelta:      num(i, "run_risk_delta"),
			LightenFactor:     num(i, "lighten_factor"),
			CoverFactor:       num(i, "cover_factor"),
			VariegationBoost:  num(i, "variegation_boost"),
			ImageURL:          tbl.Get(i, "image_url"),
			LocalImage:        tbl.Get(i, "local_image"),
			PreviewBaseHex:    tbl.Get(i, "preview_base_hex"),
			PreviewOverlayHex: tbl.Get(i, "preview_overlay_hex"),
			ReferenceURL:      tbl.Get(i, "reference_url"),
			Notes:             tbl.Get(i, "notes"),
		})
	}
	return out, defaulted, nil
}

// encode renders rules in Columns order.
func encode(rules []Rule) ([]byte, error) {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []string{
			r.BaseGlazeID, r.OverlayGlazeID, string(r.ClearCoat),
			glaze.FormatFloat(r.RunRiskDelta),
			glaze.FormatFloat(r.LightenFactor),
			glaze.FormatFloat(r.CoverFactor),
			glaze.FormatFloat(r.VariegationBoost),
			r.ImageURL, r.LocalImage, r.PreviewBaseHex, r.PreviewOverlayHex,
			r.ReferenceURL, r.Notes,
		})
	}
	data, err := csvtable.Encode(Columns, rows)
	if err != nil {
		return nil, fmt.Errorf("rules: encode: %w", err)
	}
	return data, nil
}
