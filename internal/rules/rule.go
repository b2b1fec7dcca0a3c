// Package rules implements the correction-rule store.
//
// A correction rule is a user-recorded empirical adjustment to the scoring
// formulas for one (base glaze, overlay glaze, clear coat) combination.
// Rules are additive deltas, never fitted parameters. The store keeps at
// most one matchable rule per combination: saving an existing key replaces
// that rule's fields in place, saving a new key appends a row.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/go-playground/validator/v10"
)

// Default preview colors used when a rule has no hex colors of its own.
const (
	DefaultPreviewBaseHex    = "#cfcfcf"
	DefaultPreviewOverlayHex = "#7aa69a"
)

// ErrInvalidRule wraps every validation failure returned by Validate.
var ErrInvalidRule = errors.New("invalid rule")

// Key is the composite identity of a rule.
type Key struct {
	Base      string          `json:"base_glaze_id"`
	Overlay   string          `json:"over_glaze_id"`
	ClearCoat glaze.ClearCoat `json:"clear_coat"`
}

// String renders the key as "base + overlay (clear coat)".
func (k Key) String() string {
	return fmt.Sprintf("%s + %s (%s)", k.Base, k.Overlay, k.ClearCoat)
}

// Rule is one correction rule.
type Rule struct {
	BaseGlazeID    string          `json:"base_glaze_id" validate:"required"`
	OverlayGlazeID string          `json:"over_glaze_id" validate:"required"`
	ClearCoat      glaze.ClearCoat `json:"clear_coat" validate:"oneof=none gloss satin_matte"`

	RunRiskDelta     float64 `json:"run_risk_delta" validate:"gte=-1,lte=1"`
	LightenFactor    float64 `json:"lighten_factor" validate:"gte=0,lte=1"`
	CoverFactor      float64 `json:"cover_factor" validate:"gte=0,lte=1"`
	VariegationBoost float64 `json:"variegation_boost" validate:"gte=0,lte=1"`

	ImageURL          string `json:"image_url,omitempty" validate:"omitempty,url"`
	LocalImage        string `json:"local_image,omitempty" validate:"omitempty,imagefile"`
	PreviewBaseHex    string `json:"preview_base_hex,omitempty" validate:"omitempty,hexcolor"`
	PreviewOverlayHex string `json:"preview_overlay_hex,omitempty" validate:"omitempty,hexcolor"`
	ReferenceURL      string `json:"reference_url,omitempty" validate:"omitempty,url"`
	Notes             string `json:"notes,omitempty"`
}

// Key returns the rule's composite key.
func (r Rule) Key() Key {
	return Key{Base: r.BaseGlazeID, Overlay: r.OverlayGlazeID, ClearCoat: r.ClearCoat}
}

// Normalize trims text fields and maps an empty clear coat to none.
func (r Rule) Normalize() Rule {
	r.BaseGlazeID = strings.TrimSpace(r.BaseGlazeID)
	r.OverlayGlazeID = strings.TrimSpace(r.OverlayGlazeID)
	if cc, err := glaze.ParseClearCoat(string(r.ClearCoat)); err == nil {
		r.ClearCoat = cc
	}
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	r.LocalImage = strings.TrimSpace(r.LocalImage)
	r.PreviewBaseHex = strings.TrimSpace(r.PreviewBaseHex)
	r.PreviewOverlayHex = strings.TrimSpace(r.PreviewOverlayHex)
	r.ReferenceURL = strings.TrimSpace(r.ReferenceURL)
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

// ─── Validation ──────────────────────────────────────────────────────────────

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("imagefile", func(fl validator.FieldLevel) bool {
		return gallery.ValidName(fl.Field().String())
	})
}

// Validate checks every field against its documented range. Out-of-range
// values are rejected, never clamped. The returned error wraps
// ErrInvalidRule and names each failing field.
func (r Rule) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", fe.Field(), fe.Param(), fe.Value())
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color like #7aa69a (got %q)", fe.Field(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL (got %q)", fe.Field(), fe.Value())
	case "imagefile":
		return fmt.Sprintf("%s must be a bare .jpg/.jpeg/.png/.webp filename (got %q)", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// ─── Visual resolution ───────────────────────────────────────────────────────

// VisualKind says where a rule's picture comes from.
type VisualKind string

const (
	VisualRemote      VisualKind = "remote"
	VisualLocal       VisualKind = "local"
	VisualSynthesized VisualKind = "synthesized"
)

// Visual describes how to show a rule: an official image URL, a local
// reference photo, or a preview synthesized from two colors.
type Visual struct {
	Kind         VisualKind `json:"kind"`
	URL          string     `json:"url,omitempty"`
	Path         string     `json:"path,omitempty"`
	BaseHex      string     `json:"base_hex,omitempty"`
	OverlayHex   string     `json:"overlay_hex,omitempty"`
	ReferenceURL string     `json:"reference_url,omitempty"`
}

// Visual resolves the rule's picture. A remote URL wins; otherwise a local
// image is used only if it exists in g; otherwise the preview colors are
// returned, defaulted when unset. g may be nil.
func (r Rule) Visual(g *gallery.Gallery) Visual {
	v := Visual{ReferenceURL: r.ReferenceURL}
	if r.ImageURL != "" {
		v.Kind = VisualRemote
		v.URL = r.ImageURL
		return v
	}
	if r.LocalImage != "" && g != nil && g.Exists(r.LocalImage) {
		if p, err := g.Path(r.LocalImage); err == nil {
			v.Kind = VisualLocal
			v.Path = p
			return v
		}
	}
	v.Kind = VisualSynthesized
	v.BaseHex = orDefault(r.PreviewBaseHex, DefaultPreviewBaseHex)
	v.OverlayHex = orDefault(r.PreviewOverlayHex, DefaultPreviewOverlayHex)
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
