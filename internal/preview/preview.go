// Package preview draws a stylized swatch of a glaze combination when no
// photo of a fired tile exists.
//
// The picture is decorative, not a render: overlay opacity follows
// coverage, vertical drips follow run risk, and per-pixel speckle follows
// variegation. Randomness is injected so tests can fix a seed and assert
// structure (counts, ranges) without asserting pixels.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"
)

// Fallback colors for unparseable hex input.
var (
	FallbackBase    = color.RGBA{R: 210, G: 210, B: 210, A: 255}
	FallbackOverlay = color.RGBA{R: 140, G: 170, B: 160, A: 255}
)

const (
	maxOverlayAlpha = 180
	maxDripAlpha    = 200
	dripAlphaBoost  = 120
	minDrips        = 6
	extraDrips      = 18
	speckleScale    = 400
	speckleJitter   = 15
)

// Options controls canvas geometry.
type Options struct {
	Size   int
	Margin int
	Frame  color.RGBA
}

// DefaultOptions is a 220px swatch with a 4px light-gray frame.
func DefaultOptions() Options {
	return Options{Size: 220, Margin: 4, Frame: color.RGBA{R: 240, G: 240, B: 240, A: 255}}
}

// Params are the scored quantities driving the picture.
type Params struct {
	Base        color.RGBA
	Overlay     color.RGBA
	Coverage    float64 // 0..1
	RunRisk     float64 // 0..1.8
	Variegation float64 // 0..1
}

// Drip is one synthesized run mark, in swatch coordinates.
type Drip struct {
	X, Y, Width, Length int
}

// Render is a synthesized swatch plus what went into it.
type Render struct {
	Image        *image.RGBA
	OverlayAlpha uint8
	DripAlpha    uint8
	Drips        []Drip
	Speckles     int
}

// Layer fills a size×size canvas with base and composites a uniform
// overlay layer on top at alpha 180*coverage. Coverage 0 leaves the base
// untouched.
func Layer(base, overlay color.RGBA, coverage float64, size int) (*image.RGBA, uint8) {
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(opaque(base)), image.Point{}, draw.Src)

	alpha := uint8(maxOverlayAlpha * clamp(coverage, 0, 1))
	if alpha > 0 {
		layer := color.NRGBA{R: overlay.R, G: overlay.G, B: overlay.B, A: alpha}
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(layer), image.Point{}, draw.Over)
	}
	return canvas, alpha
}

// Synthesize draws the swatch. A nil rnd uses a randomly seeded source,
// so every call differs.
func Synthesize(p Params, opts Options, rnd *rand.Rand) *Render {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	def := DefaultOptions()
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	if opts.Frame == (color.RGBA{}) {
		opts.Frame = def.Frame
	}
	size := opts.Size

	canvas, alpha := Layer(p.Base, p.Overlay, p.Coverage, size)
	r := &Render{OverlayAlpha: alpha}

	// Drips.
	run := math.Max(0, p.RunRisk)
	nDrips := int(minDrips + extraDrips*math.Min(1, run/1.2))
	maxLen := int(float64(size) * math.Min(0.9, run/1.6))
	r.DripAlpha = uint8(min(maxDripAlpha, dripAlphaBoost+int(alpha)))
	drip := image.NewUniform(color.NRGBA{R: p.Overlay.R, G: p.Overlay.G, B: p.Overlay.B, A: r.DripAlpha})
	for range nDrips {
		d := Drip{X: rnd.IntN(size)}
		d.Length = randInt(rnd, int(float64(maxLen)*0.3), maxLen)
		d.Width = randInt(rnd, 2, 5)
		d.Y = randInt(rnd, 0, int(float64(size)*0.2))
		rect := image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Length).Intersect(canvas.Bounds())
		if !rect.Empty() {
			draw.Draw(canvas, rect, drip, image.Point{}, draw.Over)
		}
		r.Drips = append(r.Drips, d)
	}

	// Speckle.
	r.Speckles = int(speckleScale * clamp(p.Variegation, 0, 1))
	for range r.Speckles {
		x, y := rnd.IntN(size), rnd.IntN(size)
		c := canvas.RGBAAt(x, y)
		c.R = jitter(rnd, c.R)
		c.G = jitter(rnd, c.G)
		c.B = jitter(rnd, c.B)
		canvas.SetRGBA(x, y, c)
	}

	// Frame.
	full := size + 2*opts.Margin
	framed := image.NewRGBA(image.Rect(0, 0, full, full))
	draw.Draw(framed, framed.Bounds(), image.NewUniform(opts.Frame), image.Point{}, draw.Src)
	draw.Draw(framed, image.Rect(opts.Margin, opts.Margin, opts.Margin+size, opts.Margin+size), canvas, image.Point{}, draw.Src)
	r.Image = framed
	return r
}

// randInt returns a uniform int in [lo, hi]; hi < lo yields lo.
func randInt(rnd *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rnd.IntN(hi-lo+1)
}

func jitter(rnd *rand.Rand, v uint8) uint8 {
	n := int(v) + randInt(rnd, -speckleJitter, speckleJitter)
	return uint8(min(255, max(0, n)))
}

func opaque(c color.RGBA) color.RGBA {
	c.A = 255
	return c
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
