// Package export writes the rule table and the experiment log to an .xlsx
// workbook for people who keep their glaze notes in a spreadsheet.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/rules"
)

// Sheet names.
const (
	RulesSheet       = "Rules"
	ExperimentsSheet = "Experiments"
)

// ExperimentColumns is the header row of the experiments sheet.
var ExperimentColumns = []string{
	"id", "created_at", "base_glaze_id", "overlay_glaze_id", "clear_coat",
	"base_coats", "overlay_coats", "application", "placement", "texture_level",
	"observed_run_label", "observed_overlay_coverage_pct", "observed_variegation_pct",
	"firing_cone", "kiln_notes", "notes",
}

// Workbook builds a workbook with a Rules sheet and, when exps is non-nil,
// an Experiments sheet. The caller closes the returned file.
func Workbook(rs []rules.Rule, exps []experiments.Experiment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", RulesSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: style: %w", err)
	}

	rows := make([][]any, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []any{
			r.BaseGlazeID, r.OverlayGlazeID, string(r.ClearCoat),
			r.RunRiskDelta, r.LightenFactor, r.CoverFactor, r.VariegationBoost,
			r.ImageURL, r.LocalImage, r.PreviewBaseHex, r.PreviewOverlayHex,
			r.ReferenceURL, r.Notes,
		})
	}
	if err := writeSheet(f, RulesSheet, rules.Columns, rows, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.SetColWidth(RulesSheet, "A", "C", 16)
	_ = f.SetColWidth(RulesSheet, "H", "M", 28)

	if exps != nil {
		if _, err := f.NewSheet(ExperimentsSheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("export: new sheet: %w", err)
		}
		rows = rows[:0]
		for _, e := range exps {
			rows = append(rows, []any{
				e.ID, e.CreatedAt, e.BaseGlazeID, e.OverlayGlazeID, e.ClearCoat,
				e.BaseCoats, e.OverlayCoats, e.Application, e.Placement, e.TextureLevel,
				e.ObservedRunLabel, optional(e.ObservedCoveragePct), optional(e.ObservedVariegationPct),
				e.FiringCone, e.KilnNotes, e.Notes,
			})
		}
		if err := writeSheet(f, ExperimentsSheet, ExperimentColumns, rows, headerStyle); err != nil {
			_ = f.Close()
			return nil, err
		}
		_ = f.SetColWidth(ExperimentsSheet, "A", "B", 24)
	}
	return f, nil
}

// WriteFile builds the workbook and saves it to path.
func WriteFile(path string, rs []rules.Rule, exps []experiments.Experiment) error {
	f, err := Workbook(rs, exps)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("export: %s header: %w", sheet, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("export: %s header style: %w", sheet, err)
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}

// optional leaves a blank cell for an unrecorded observation.
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
