package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/preview"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// PreviewTool handles the glaze_preview MCP tool.
type PreviewTool struct {
	engine  *predict.Engine
	gallery *gallery.Gallery
	opts    preview.Options
}

// NewPreviewTool creates a PreviewTool. Local reference images are looked
// up in g.
func NewPreviewTool(engine *predict.Engine, g *gallery.Gallery, opts preview.Options) *PreviewTool {
	return &PreviewTool{engine: engine, gallery: g, opts: opts}
}

// Definition returns the MCP tool definition for glaze_preview.
func (t *PreviewTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Show what a glaze combination might look like. When use_rules is set and the matching rule has " +
				"an official image URL or a local reference photo, that is returned; otherwise a stylized swatch " +
				"is drawn from two colors and the predicted coverage, run risk and variegation. " +
				"The swatch is an approximation, not a render.",
		),
	}, ComboOptions()...)
	opts = append(opts,
		mcp.WithBoolean("use_rules",
			mcp.Description("Apply a saved correction rule and its visual when one matches (default: false)"),
		),
		mcp.WithString("base_hex",
			mcp.Description("Swatch base color as #rrggbb (default: the rule's color, else "+rules.DefaultPreviewBaseHex+")"),
		),
		mcp.WithString("overlay_hex",
			mcp.Description("Swatch overlay color as #rrggbb (default: the rule's color, else "+rules.DefaultPreviewOverlayHex+")"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Fix the random seed to get the same swatch every time (default: random)"),
		),
	)
	return mcp.NewTool("glaze_preview", opts...)
}

// Handle processes the glaze_preview tool call.
func (t *PreviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := ComboRequest(req)
	if r.BaseID == "" {
		return mcp.NewToolResultError("'base_glaze_id' is required"), nil
	}
	r.UseRules = boolArg(req, "use_rules", false)

	out, err := t.engine.Predict(r)
	if err != nil {
		return PredictionError(err), nil
	}
	summary := FormatOutcome(out)

	visual := rules.Visual{
		Kind:       rules.VisualSynthesized,
		BaseHex:    rules.DefaultPreviewBaseHex,
		OverlayHex: rules.DefaultPreviewOverlayHex,
	}
	if m := out.Result.MatchedRule; m != nil {
		visual = m.Visual(t.gallery)
	}
	if visual.ReferenceURL != "" {
		summary += fmt.Sprintf("\nReference: %s\n", visual.ReferenceURL)
	}

	switch visual.Kind {
	case rules.VisualRemote:
		return mcp.NewToolResultText(summary + fmt.Sprintf("\nOfficial image: %s\n", visual.URL)), nil
	case rules.VisualLocal:
		name := filepath.Base(visual.Path)
		data, err := t.gallery.Read(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read reference image: %v", err)), nil
		}
		return mcp.NewToolResultImage(
			summary+fmt.Sprintf("\nYour reference: %s\n", name),
			base64.StdEncoding.EncodeToString(data),
			gallery.MIMEType(name),
		), nil
	}

	baseHex := strings.TrimSpace(req.GetString("base_hex", ""))
	if baseHex == "" {
		baseHex = visual.BaseHex
	}
	overlayHex := strings.TrimSpace(req.GetString("overlay_hex", ""))
	if overlayHex == "" {
		overlayHex = visual.OverlayHex
	}

	var rnd *rand.Rand
	if seed := intArg(req, "seed", 0); seed != 0 {
		rnd = rand.New(rand.NewPCG(uint64(seed), 0))
	}
	base := preview.ParseHex(baseHex, preview.FallbackBase)
	overlay := preview.ParseHex(overlayHex, preview.FallbackOverlay)
	render := preview.Synthesize(preview.Params{
		Base:        base,
		Overlay:     overlay,
		Coverage:    out.Result.OverlayCoverage,
		RunRisk:     out.Result.RunRisk,
		Variegation: out.Result.Variegation,
	}, t.opts, rnd)

	data, err := preview.EncodePNGBase64(render.Image)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode preview: %v", err)), nil
	}
	summary += fmt.Sprintf("\nGenerated preview: %d drips, %d speckles (%s over %s)\n",
		len(render.Drips), render.Speckles, preview.Hex(overlay), preview.Hex(base))
	return mcp.NewToolResultImage(summary, data, "image/png"), nil
}
