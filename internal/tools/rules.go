package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// GlazeChecker reports whether a glaze id is in the catalog.
type GlazeChecker interface {
	Has(id string) bool
}

// ruleKeyOptions are the composite-key parameters of the rule tools.
func ruleKeyOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("base_glaze_id",
			mcp.Required(),
			mcp.Description("Catalog id of the base glaze"),
		),
		mcp.WithString("overlay_glaze_id",
			mcp.Required(),
			mcp.Description("Catalog id of the overlay glaze"),
		),
		mcp.WithString("clear_coat",
			mcp.Description("Clear coat of the combination (default: none)"),
			mcp.Enum(glaze.ClearCoatNames()...),
		),
	}
}

func ruleKey(req mcp.CallToolRequest) (rules.Key, error) {
	cc, err := glaze.ParseClearCoat(req.GetString("clear_coat", ""))
	if err != nil {
		return rules.Key{}, err
	}
	return rules.Key{
		Base:      strings.TrimSpace(req.GetString("base_glaze_id", "")),
		Overlay:   strings.TrimSpace(req.GetString("overlay_glaze_id", "")),
		ClearCoat: cc,
	}, nil
}

// ─── rule_find ───────────────────────────────────────────────────────────────

// RuleFindTool handles the rule_find MCP tool.
type RuleFindTool struct {
	store   RuleStore
	gallery *gallery.Gallery
}

// NewRuleFindTool creates a RuleFindTool.
func NewRuleFindTool(store RuleStore, g *gallery.Gallery) *RuleFindTool {
	return &RuleFindTool{store: store, gallery: g}
}

// Definition returns the MCP tool definition for rule_find.
func (t *RuleFindTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Look up the correction rule saved for an exact base + overlay + clear coat combination, " +
				"including how its picture would be shown.",
		),
	}, ruleKeyOptions()...)
	return mcp.NewTool("rule_find", opts...)
}

// Handle processes the rule_find tool call.
func (t *RuleFindTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := ruleKey(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameter: %v", err)), nil
	}
	if key.Base == "" || key.Overlay == "" {
		return mcp.NewToolResultError("'base_glaze_id' and 'overlay_glaze_id' are required"), nil
	}

	r, ok := t.store.Find(key)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No rule saved for %s.", key)), nil
	}

	var sb strings.Builder
	sb.WriteString(formatRule(r))
	v := r.Visual(t.gallery)
	switch v.Kind {
	case rules.VisualRemote:
		fmt.Fprintf(&sb, "\nPicture: official image %s\n", v.URL)
	case rules.VisualLocal:
		fmt.Fprintf(&sb, "\nPicture: your reference %s\n", v.Path)
	default:
		fmt.Fprintf(&sb, "\nPicture: generated preview (%s over %s)\n", v.OverlayHex, v.BaseHex)
	}
	if v.ReferenceURL != "" {
		fmt.Fprintf(&sb, "Reference: %s\n", v.ReferenceURL)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── rule_save ───────────────────────────────────────────────────────────────

// RuleSaveTool handles the rule_save MCP tool.
type RuleSaveTool struct {
	store   RuleStore
	catalog GlazeChecker
}

// NewRuleSaveTool creates a RuleSaveTool. Glaze ids are checked against
// catalog before saving.
func NewRuleSaveTool(store RuleStore, catalog GlazeChecker) *RuleSaveTool {
	return &RuleSaveTool{store: store, catalog: catalog}
}

// Definition returns the MCP tool definition for rule_save.
func (t *RuleSaveTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Save what you observed for a combination as a correction rule. Saving a combination that " +
				"already has a rule replaces every field of that rule; a new combination adds a rule. " +
				"Out-of-range values are rejected, not clamped.",
		),
	}, ruleKeyOptions()...)
	opts = append(opts,
		mcp.WithNumber("run_risk_delta",
			mcp.Description("Added to run risk, -1..1 (default: 0)"),
		),
		mcp.WithNumber("lighten_factor",
			mcp.Description("How much the overlay lightened the base, 0..1 (default: 0). Recorded only."),
		),
		mcp.WithNumber("cover_factor",
			mcp.Description("Added to overlay coverage before the coat scaling, 0..1 (default: 0)"),
		),
		mcp.WithNumber("variegation_boost",
			mcp.Description("Added to variegation, 0..1 (default: 0)"),
		),
		mcp.WithString("image_url",
			mcp.Description("Official image URL, if the manufacturer shows this combination"),
		),
		mcp.WithString("local_image",
			mcp.Description("Filename of your own photo in the images directory (see image_save)"),
		),
		mcp.WithString("preview_base_hex",
			mcp.Description("Base color for the generated preview, #rrggbb"),
		),
		mcp.WithString("preview_overlay_hex",
			mcp.Description("Overlay color for the generated preview, #rrggbb"),
		),
		mcp.WithString("reference_url",
			mcp.Description("Link to a chart or PDF about this combination"),
		),
		mcp.WithString("notes",
			mcp.Description("What you saw (e.g. 'ran into the foot ring at cone 6')"),
		),
	)
	return mcp.NewTool("rule_save", opts...)
}

// Handle processes the rule_save tool call.
func (t *RuleSaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := ruleKey(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameter: %v", err)), nil
	}
	if key.Base == "" || key.Overlay == "" {
		return mcp.NewToolResultError("'base_glaze_id' and 'overlay_glaze_id' are required"), nil
	}
	for _, id := range []string{key.Base, key.Overlay} {
		if t.catalog != nil && !t.catalog.Has(id) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown glaze %q. Use glaze_catalog to find valid ids.", id)), nil
		}
	}

	rule := rules.Rule{
		BaseGlazeID:       key.Base,
		OverlayGlazeID:    key.Overlay,
		ClearCoat:         key.ClearCoat,
		RunRiskDelta:      req.GetFloat("run_risk_delta", 0),
		LightenFactor:     req.GetFloat("lighten_factor", 0),
		CoverFactor:       req.GetFloat("cover_factor", 0),
		VariegationBoost:  req.GetFloat("variegation_boost", 0),
		ImageURL:          req.GetString("image_url", ""),
		LocalImage:        req.GetString("local_image", ""),
		PreviewBaseHex:    req.GetString("preview_base_hex", ""),
		PreviewOverlayHex: req.GetString("preview_overlay_hex", ""),
		ReferenceURL:      req.GetString("reference_url", ""),
		Notes:             req.GetString("notes", ""),
	}

	res, err := t.store.Save(rule)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidRule) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to save rule: %v", err)), nil
	}

	verb := "Updated"
	if res.Created {
		verb = "Saved new"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s rule for %s. The rule table now has %d rows.", verb, key, res.Rows,
	)), nil
}

// ─── rule_list ───────────────────────────────────────────────────────────────

// RuleListTool handles the rule_list MCP tool.
type RuleListTool struct {
	store RuleStore
}

// NewRuleListTool creates a RuleListTool.
func NewRuleListTool(store RuleStore) *RuleListTool {
	return &RuleListTool{store: store}
}

// Definition returns the MCP tool definition for rule_list.
func (t *RuleListTool) Definition() mcp.Tool {
	return mcp.NewTool("rule_list",
		mcp.WithDescription("List the saved correction rules, optionally only those involving one glaze."),
		mcp.WithString("glaze_id",
			mcp.Description("Only rules where this glaze is the base or the overlay"),
		),
	)
}

// Handle processes the rule_list tool call.
func (t *RuleListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("glaze_id", ""))

	all := t.store.All()
	var sb strings.Builder
	n := 0
	for _, r := range all {
		if id != "" && r.BaseGlazeID != id && r.OverlayGlazeID != id {
			continue
		}
		n++
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			r.BaseGlazeID, r.OverlayGlazeID, r.ClearCoat,
			glaze.FormatFloat(r.RunRiskDelta), glaze.FormatFloat(r.CoverFactor), glaze.FormatFloat(r.VariegationBoost),
			strings.ReplaceAll(r.Notes, "|", "/"))
	}
	if n == 0 {
		return mcp.NewToolResultText("No rules yet."), nil
	}
	header := fmt.Sprintf("## Rules (%d)\n\n| base | overlay | clear coat | run Δ | cover | variegation | notes |\n|---|---|---|---|---|---|---|\n", n)
	return mcp.NewToolResultText(header + sb.String()), nil
}
