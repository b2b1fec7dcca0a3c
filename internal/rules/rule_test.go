package rules

import (
	"path/filepath"
	"testing"

	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_NamesFailingFields(t *testing.T) {
	r := testRule("A", "B", glaze.ClearNone)
	r.RunRiskDelta = -1.2
	r.CoverFactor = 3

	err := r.Validate()
	require.ErrorIs(t, err, ErrInvalidRule)
	assert.Contains(t, err.Error(), "RunRiskDelta must be >= -1")
	assert.Contains(t, err.Error(), "CoverFactor must be <= 1")
}

func TestValidate_AcceptsShortHex(t *testing.T) {
	r := testRule("A", "B", glaze.ClearGloss)
	r.PreviewBaseHex = "#ccc"
	r.PreviewOverlayHex = "#7aa69a"
	assert.NoError(t, r.Validate())
}

func TestKey_String(t *testing.T) {
	k := Key{Base: "PC-59", Overlay: "PC-32", ClearCoat: glaze.ClearGloss}
	assert.Equal(t, "PC-59 + PC-32 (gloss)", k.String())
}

func TestVisual_RemoteWins(t *testing.T) {
	r := testRule("A", "B", glaze.ClearNone)
	r.ImageURL = "https://example.com/a.jpg"
	r.LocalImage = "a.jpg"
	r.ReferenceURL = "https://example.com/chart.pdf"

	v := r.Visual(nil)
	assert.Equal(t, VisualRemote, v.Kind)
	assert.Equal(t, "https://example.com/a.jpg", v.URL)
	assert.Equal(t, "https://example.com/chart.pdf", v.ReferenceURL)
}

func TestVisual_LocalOnlyWhenFileExists(t *testing.T) {
	dir := t.TempDir()
	g := gallery.New(dir)
	r := testRule("A", "B", glaze.ClearNone)
	r.LocalImage = "tile.png"

	v := r.Visual(g)
	assert.Equal(t, VisualSynthesized, v.Kind, "missing local file falls through to synthesized")

	_, err := g.Save("tile.png", []byte("png"))
	require.NoError(t, err)

	v = r.Visual(g)
	assert.Equal(t, VisualLocal, v.Kind)
	assert.Equal(t, filepath.Join(dir, "tile.png"), v.Path)
}

func TestVisual_SynthesizedDefaults(t *testing.T) {
	r := testRule("A", "B", glaze.ClearNone)
	v := r.Visual(nil)
	assert.Equal(t, VisualSynthesized, v.Kind)
	assert.Equal(t, DefaultPreviewBaseHex, v.BaseHex)
	assert.Equal(t, DefaultPreviewOverlayHex, v.OverlayHex)

	r.PreviewBaseHex = "#112233"
	v = r.Visual(nil)
	assert.Equal(t, "#112233", v.BaseHex)
	assert.Equal(t, DefaultPreviewOverlayHex, v.OverlayHex)
}
