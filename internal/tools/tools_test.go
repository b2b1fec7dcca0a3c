package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/kiln/internal/catalog"
	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/preview"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- Test helpers ---

type testDeps struct {
	catalog *catalog.Catalog
	rules   *rules.Store
	gallery *gallery.Gallery
	engine  *predict.Engine
}

func newTestDeps(t *testing.T) testDeps {
	t.Helper()
	dir := t.TempDir()
	cat := catalog.New([]glaze.Record{
		{ID: "PC-59", Brand: "Potter's Choice", Name: "Deep Olive", Flow: 0.3, Opacity: 0.7, Finish: "gloss"},
		{ID: "PC-32", Brand: "Potter's Choice", Name: "Albany Slip", Flow: 0.5, Opacity: 0.4, Finish: "satin"},
		{ID: "C-1", Brand: "Coyote", Name: "Shino", Flow: 0.2, Opacity: 0.9, Finish: "matte"},
	})
	store := rules.NewStore(filepath.Join(dir, "glaze_rules.csv"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return testDeps{
		catalog: cat,
		rules:   store,
		gallery: gallery.New(filepath.Join(dir, "images")),
		engine:  predict.NewEngine(cat, store),
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// resultImage extracts the image content from a tool result.
func resultImage(r *mcp.CallToolResult) (mcp.ImageContent, bool) {
	if r == nil {
		return mcp.ImageContent{}, false
	}
	for _, c := range r.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			return ic, true
		}
	}
	return mcp.ImageContent{}, false
}

func comboArgs() map[string]interface{} {
	return map[string]interface{}{
		"base_glaze_id":    "PC-59",
		"overlay_glaze_id": "PC-32",
		"clear_coat":       "none",
		"base_coats":       float64(2),
		"overlay_coats":    float64(2),
		"application":      "poured",
		"placement":        "rim",
		"texture_level":    float64(6),
	}
}

func saveRule(t *testing.T, d testDeps, r rules.Rule) {
	t.Helper()
	_, err := d.rules.Save(r)
	require.NoError(t, err)
}

// --- glaze_predict ---

func TestPredictTool_Definition(t *testing.T) {
	def := NewPredictTool(newTestDeps(t).engine).Definition()
	assert.Equal(t, "glaze_predict", def.Name)
	for _, p := range []string{"base_glaze_id", "overlay_glaze_id", "clear_coat", "base_coats", "overlay_coats", "application", "placement", "texture_level", "use_rules"} {
		assert.Contains(t, def.InputSchema.Properties, p)
	}
	assert.Contains(t, def.InputSchema.Required, "base_glaze_id")
}

func TestPredictTool_WorkedExample(t *testing.T) {
	tool := NewPredictTool(newTestDeps(t).engine)

	res, err := tool.Handle(context.Background(), makeReq(comboArgs()))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))

	text := resultText(res)
	assert.Contains(t, text, "**Run risk**: High (1.79")
	assert.Contains(t, text, "**Overlay coverage**: 16%")
	assert.Contains(t, text, "**Variegation**: 24%")
	assert.Contains(t, text, "**Finish**: satin")
	assert.Contains(t, text, "Potter's Choice Albany Slip")
	assert.NotContains(t, text, "Rule applied")
}

func TestPredictTool_Errors(t *testing.T) {
	tool := NewPredictTool(newTestDeps(t).engine)

	tests := []struct {
		name string
		key  string
		val  interface{}
		want string
	}{
		{"missing base", "base_glaze_id", "", "required"},
		{"unknown base", "base_glaze_id", "XX-1", "unknown glaze"},
		{"unknown overlay", "overlay_glaze_id", "XX-2", "unknown glaze"},
		{"bad placement", "placement", "shelf", "invalid parameter"},
		{"bad clear coat", "clear_coat", "lustre", "invalid parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := comboArgs()
			args[tt.key] = tt.val
			res, err := tool.Handle(context.Background(), makeReq(args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), tt.want)
		})
	}
}

func TestPredictTool_UsesSavedRule(t *testing.T) {
	d := newTestDeps(t)
	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", ClearCoat: glaze.ClearNone, CoverFactor: 0.2, Notes: "pooled on the rim"})
	tool := NewPredictTool(d.engine)

	args := comboArgs()
	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	assert.NotContains(t, resultText(res), "Rule applied", "rules are off by default")

	args["use_rules"] = true
	res, err = tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "Rule applied: PC-59 + PC-32 (none)")
	assert.Contains(t, text, "Rule note: pooled on the rim")
	assert.Contains(t, text, "**Overlay coverage**: 29%")
}

func TestPredictTool_ReportsClamping(t *testing.T) {
	tool := NewPredictTool(newTestDeps(t).engine)
	args := comboArgs()
	args["base_coats"] = float64(12)

	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "base_coats 12 clamped to 5")
}

// --- glaze_preview ---

func TestPreviewTool_Synthesized(t *testing.T) {
	d := newTestDeps(t)
	tool := NewPreviewTool(d.engine, d.gallery, preview.DefaultOptions())

	args := comboArgs()
	args["seed"] = float64(7)
	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))

	img, ok := resultImage(res)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)

	raw, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 228, decoded.Bounds().Dx())

	text := resultText(res)
	assert.Contains(t, text, "Generated preview: 24 drips")
	assert.Contains(t, text, rules.DefaultPreviewOverlayHex+" over "+rules.DefaultPreviewBaseHex)
}

func TestPreviewTool_ReportsColorsActuallyUsed(t *testing.T) {
	d := newTestDeps(t)
	tool := NewPreviewTool(d.engine, d.gallery, preview.Options{Size: 16})

	args := comboArgs()
	args["base_hex"] = "olive"
	args["overlay_hex"] = "#ABCDEF"
	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "(#abcdef over #d2d2d2)", "unparseable hex falls back to the default base")
}

func TestPreviewTool_SeedIsReproducible(t *testing.T) {
	d := newTestDeps(t)
	tool := NewPreviewTool(d.engine, d.gallery, preview.Options{Size: 32, Margin: 1})

	args := comboArgs()
	args["seed"] = float64(99)
	a, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	b, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)

	ia, _ := resultImage(a)
	ib, _ := resultImage(b)
	assert.Equal(t, ia.Data, ib.Data)
}

func TestPreviewTool_RuleVisuals(t *testing.T) {
	d := newTestDeps(t)
	tool := NewPreviewTool(d.engine, d.gallery, preview.Options{Size: 16})
	args := comboArgs()
	args["use_rules"] = true

	// Local reference photo.
	_, err := d.gallery.Save("olive_slip.jpg", []byte("fake jpeg"))
	require.NoError(t, err)
	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", LocalImage: "olive_slip.jpg", ReferenceURL: "https://example.com/chart.pdf"})

	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	img, ok := resultImage(res)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("fake jpeg")), img.Data)
	assert.Contains(t, resultText(res), "Reference: https://example.com/chart.pdf")

	// An official image URL wins over the local photo.
	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", LocalImage: "olive_slip.jpg", ImageURL: "https://example.com/combo.jpg"})
	res, err = tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	_, ok = resultImage(res)
	assert.False(t, ok)
	assert.Contains(t, resultText(res), "Official image: https://example.com/combo.jpg")

	// Missing local file falls back to the rule's colors.
	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", LocalImage: "gone.png", PreviewBaseHex: "#6b703a"})
	res, err = tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	_, ok = resultImage(res)
	assert.True(t, ok)
	assert.Contains(t, resultText(res), "#7aa69a over #6b703a")
}

// --- glaze_catalog ---

func TestCatalogTool(t *testing.T) {
	tool := NewCatalogTool(newTestDeps(t).catalog)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "## Glazes (3 of 3)")
	assert.Contains(t, text, "| PC-59 | Potter's Choice Deep Olive | 0.3 | 0.7 | gloss |")

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "olive"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "(1 of 3)")

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"limit": float64(1)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "2 more")

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "celadon"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "No glazes match")
}

// --- rule_save / rule_find / rule_list ---

func TestRuleSaveTool_CreateThenUpdate(t *testing.T) {
	d := newTestDeps(t)
	tool := NewRuleSaveTool(d.rules, d.catalog)

	args := map[string]interface{}{
		"base_glaze_id":    "PC-59",
		"overlay_glaze_id": "PC-32",
		"run_risk_delta":   0.2,
		"cover_factor":     0.1,
		"notes":            "first firing",
	}
	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "Saved new rule for PC-59 + PC-32 (none)")

	args["notes"] = "second firing"
	res, err = tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "Updated rule")
	assert.Contains(t, resultText(res), "1 rows")

	got, ok := d.rules.Find(rules.Key{Base: "PC-59", Overlay: "PC-32", ClearCoat: glaze.ClearNone})
	require.True(t, ok)
	assert.Equal(t, "second firing", got.Notes)
	assert.InDelta(t, 0.2, got.RunRiskDelta, 1e-9)
}

func TestRuleSaveTool_Rejects(t *testing.T) {
	d := newTestDeps(t)
	tool := NewRuleSaveTool(d.rules, d.catalog)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing overlay", map[string]interface{}{"base_glaze_id": "PC-59"}, "required"},
		{"unknown glaze", map[string]interface{}{"base_glaze_id": "PC-59", "overlay_glaze_id": "XX"}, `unknown glaze "XX"`},
		{"bad clear coat", map[string]interface{}{"base_glaze_id": "PC-59", "overlay_glaze_id": "PC-32", "clear_coat": "lustre"}, "invalid parameter"},
		{"delta out of range", map[string]interface{}{"base_glaze_id": "PC-59", "overlay_glaze_id": "PC-32", "run_risk_delta": 1.5}, "RunRiskDelta"},
		{"bad hex", map[string]interface{}{"base_glaze_id": "PC-59", "overlay_glaze_id": "PC-32", "preview_base_hex": "olive"}, "PreviewBaseHex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), makeReq(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), tt.want)
		})
	}
	assert.Zero(t, d.rules.Len(), "nothing persisted")
}

func TestRuleFindTool(t *testing.T) {
	d := newTestDeps(t)
	tool := NewRuleFindTool(d.rules, d.gallery)
	args := map[string]interface{}{"base_glaze_id": "PC-59", "overlay_glaze_id": "PC-32", "clear_coat": "gloss"}

	res, err := tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "No rule saved for PC-59 + PC-32 (gloss)")

	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", ClearCoat: glaze.ClearGloss, VariegationBoost: 0.3, Notes: "speckled"})
	res, err = tool.Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "### PC-59 + PC-32 (gloss)")
	assert.Contains(t, text, "variegation_boost: 0.3")
	assert.Contains(t, text, "notes: speckled")
	assert.Contains(t, text, "generated preview (#7aa69a over #cfcfcf)")
}

func TestRuleListTool(t *testing.T) {
	d := newTestDeps(t)
	tool := NewRuleListTool(d.rules)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, "No rules yet.", resultText(res))

	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32"})
	saveRule(t, d, rules.Rule{BaseGlazeID: "C-1", OverlayGlazeID: "PC-59"})
	saveRule(t, d, rules.Rule{BaseGlazeID: "C-1", OverlayGlazeID: "PC-32"})

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "## Rules (3)")

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"glaze_id": "PC-59"}))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "## Rules (2)")
	assert.NotContains(t, text, "| C-1 | PC-32 |")
}

// --- rule_export ---

func TestRuleExportTool(t *testing.T) {
	d := newTestDeps(t)
	saveRule(t, d, rules.Rule{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", Notes: "ran"})
	dir := t.TempDir()
	tool := NewRuleExportTool(d.rules, nil, dir)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"path": "exports/out.xlsx"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	path := filepath.Join(dir, "exports", "out.xlsx")
	assert.Contains(t, resultText(res), "Exported 1 rules to "+path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Rules")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"path": "out.csv"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRuleExportTool_StaysInsideDataDir(t *testing.T) {
	d := newTestDeps(t)
	dir := t.TempDir()
	tool := NewRuleExportTool(d.rules, nil, dir)

	outside := filepath.Join(t.TempDir(), "out.xlsx")
	for _, p := range []string{outside, "../out.xlsx", "exports/../../out.xlsx"} {
		res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"path": p}))
		require.NoError(t, err)
		assert.True(t, res.IsError, p)
		assert.Contains(t, resultText(res), "relative to the data directory", p)
	}
	assert.NoFileExists(t, outside)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "out.xlsx"))
}

// --- image_save ---

func TestImageSaveTool(t *testing.T) {
	d := newTestDeps(t)
	tool := NewImageSaveTool(d.gallery)
	payload := []byte("\x89PNG fake")

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"filename": "tile.png",
		"data":     base64.StdEncoding.EncodeToString(payload),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), `local_image="tile.png"`)

	got, err := os.ReadFile(filepath.Join(d.gallery.Dir(), "tile.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Data URLs are accepted.
	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"filename": "tile2.png",
		"data":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError, resultText(res))
	assert.True(t, d.gallery.Exists("tile2.png"))
}

func TestImageSaveTool_Rejects(t *testing.T) {
	tool := NewImageSaveTool(newTestDeps(t).gallery)
	ok := base64.StdEncoding.EncodeToString([]byte("x"))

	for name, args := range map[string]map[string]interface{}{
		"no filename":   {"data": ok},
		"no data":       {"filename": "a.png"},
		"path escape":   {"filename": "../a.png", "data": ok},
		"bad extension": {"filename": "a.gif", "data": ok},
		"bad base64":    {"filename": "a.png", "data": "***"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), makeReq(args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.NotEmpty(t, strings.TrimSpace(resultText(res)))
		})
	}
}
