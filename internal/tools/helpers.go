// Package tools implements the MCP tool handlers for glaze prediction,
// preview and correction-rule authoring.
//
// Each tool follows the same shape:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// User mistakes (unknown glaze, invalid enum, out-of-range rule field)
// come back as tool error results with a nil Go error.
package tools

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// RuleStore is the part of rules.Store the tools use.
type RuleStore interface {
	Find(key rules.Key) (rules.Rule, bool)
	Save(rule rules.Rule) (rules.SaveResult, error)
	All() []rules.Rule
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// ─── Shared schema ───────────────────────────────────────────────────────────

// ComboOptions are the request parameters shared by glaze_predict,
// glaze_preview and experiment_log.
func ComboOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("base_glaze_id",
			mcp.Required(),
			mcp.Description("Catalog id of the base glaze (e.g. 'PC-59')"),
		),
		mcp.WithString("overlay_glaze_id",
			mcp.Description("Catalog id of the overlay glaze. Omit or leave empty for a single glaze."),
		),
		mcp.WithString("clear_coat",
			mcp.Description("Clear coat over the combination (default: none)"),
			mcp.Enum(glaze.ClearCoatNames()...),
		),
		mcp.WithNumber("base_coats",
			mcp.Description(fmt.Sprintf("Base thickness in coats, %d-%d (default: 2)", predict.MinBaseCoats, predict.MaxBaseCoats)),
		),
		mcp.WithNumber("overlay_coats",
			mcp.Description(fmt.Sprintf("Overlay thickness in coats, %d-%d (default: 1)", predict.MinOverlayCoats, predict.MaxOverlayCoats)),
		),
		mcp.WithString("application",
			mcp.Description("How the glaze goes on (default: brushed)"),
			mcp.Enum(glaze.ApplicationNames()...),
		),
		mcp.WithString("placement",
			mcp.Description("Where the combination sits on the piece (default: flat)"),
			mcp.Enum(glaze.PlacementNames()...),
		),
		mcp.WithNumber("texture_level",
			mcp.Description(fmt.Sprintf("Surface texture, %d-%d (default: 4)", predict.MinTexture, predict.MaxTexture)),
		),
	}
}

// ComboRequest reads the shared combination parameters. Defaults match the
// studio form: two base coats, one overlay coat, brushed, flat, texture 4.
func ComboRequest(req mcp.CallToolRequest) predict.Request {
	return predict.Request{
		BaseID:       strings.TrimSpace(req.GetString("base_glaze_id", "")),
		OverlayID:    strings.TrimSpace(req.GetString("overlay_glaze_id", "")),
		ClearCoat:    glaze.ClearCoat(req.GetString("clear_coat", string(glaze.ClearNone))),
		BaseCoats:    intArg(req, "base_coats", 2),
		OverlayCoats: intArg(req, "overlay_coats", 1),
		Application:  glaze.Application(req.GetString("application", string(glaze.Brushed))),
		Placement:    glaze.Placement(req.GetString("placement", string(glaze.Flat))),
		TextureLevel: intArg(req, "texture_level", 4),
	}
}

// ─── Formatting ──────────────────────────────────────────────────────────────

// FormatOutcome renders a prediction as markdown.
func FormatOutcome(out predict.Outcome) string {
	var sb strings.Builder
	res := out.Result

	sb.WriteString("## Prediction\n\n")
	fmt.Fprintf(&sb, "- **Base**: %s\n", out.Base.DisplayName())
	if out.Overlay != nil {
		fmt.Fprintf(&sb, "- **Overlay**: %s\n", out.Overlay.DisplayName())
	} else {
		sb.WriteString("- **Overlay**: None\n")
	}
	fmt.Fprintf(&sb, "- **Clear coat**: %s\n", out.Request.ClearCoat)
	fmt.Fprintf(&sb, "- **Run risk**: %s (%.2f / %.1f)\n", res.RunLabel, res.RunRisk, predict.MaxRunRisk)
	fmt.Fprintf(&sb, "- **Overlay coverage**: %d%%\n", predict.Percent(res.OverlayCoverage))
	fmt.Fprintf(&sb, "- **Variegation**: %d%%\n", predict.Percent(res.Variegation))
	fmt.Fprintf(&sb, "- **Finish**: %s\n", orNone(res.Finish))

	if res.MatchedRule != nil {
		fmt.Fprintf(&sb, "\nRule applied: %s\n", res.MatchedRule.Key())
		if res.RuleNote != "" {
			fmt.Fprintf(&sb, "Rule note: %s\n", res.RuleNote)
		}
	}
	if len(out.Adjustments) > 0 {
		sb.WriteString("\nAdjusted inputs:\n")
		for _, a := range out.Adjustments {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
	}
	return sb.String()
}

// formatRule renders one rule as a markdown block.
func formatRule(r rules.Rule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", r.Key())
	fmt.Fprintf(&sb, "- run_risk_delta: %s\n", glaze.FormatFloat(r.RunRiskDelta))
	fmt.Fprintf(&sb, "- lighten_factor: %s\n", glaze.FormatFloat(r.LightenFactor))
	fmt.Fprintf(&sb, "- cover_factor: %s\n", glaze.FormatFloat(r.CoverFactor))
	fmt.Fprintf(&sb, "- variegation_boost: %s\n", glaze.FormatFloat(r.VariegationBoost))
	optional := []struct{ name, val string }{
		{"image_url", r.ImageURL},
		{"local_image", r.LocalImage},
		{"preview_base_hex", r.PreviewBaseHex},
		{"preview_overlay_hex", r.PreviewOverlayHex},
		{"reference_url", r.ReferenceURL},
		{"notes", r.Notes},
	}
	for _, o := range optional {
		if o.val != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", o.name, o.val)
		}
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
