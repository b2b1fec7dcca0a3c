// Package predict is the scoring engine: a pure mapping from glaze
// properties, application parameters and an optional correction rule to
// run risk, overlay coverage, variegation and finish.
//
// The three scores and the finish are independent of each other; each is
// a clamped sum of table lookups and linear terms. Rule terms apply only
// when the request asks for rules and a rule actually matched, so a
// request with UseRules and no match scores exactly like one without.
package predict

import (
	"math"

	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/rules"
)

// Score ranges.
const (
	MaxRunRisk = 1.8

	lowBelow    = 0.5
	mediumBelow = 1.0
)

// Parameter ranges. Requests outside them are clamped by Normalize.
const (
	MinBaseCoats    = 1
	MaxBaseCoats    = 5
	MinOverlayCoats = 0
	MaxOverlayCoats = 4
	MinTexture      = 0
	MaxTexture      = 10
)

var placementRisk = map[glaze.Placement]float64{
	glaze.Flat:         0.0,
	glaze.VerticalWall: 0.3,
	glaze.Rim:          0.4,
	glaze.InsideBowl:   0.35,
	glaze.OverTexture:  0.25,
}

var applicationRisk = map[glaze.Application]float64{
	glaze.Brushed: 0.05,
	glaze.Dipped:  0.1,
	glaze.Poured:  0.2,
}

// RunLabel is the coarse run-risk bucket.
type RunLabel string

const (
	Low    RunLabel = "Low"
	Medium RunLabel = "Medium"
	High   RunLabel = "High"
)

// Label buckets a run risk score. A score equal to a threshold belongs to
// the higher bucket: 0.5 is Medium and 1.0 is High.
func Label(runRisk float64) RunLabel {
	switch {
	case runRisk < lowBelow:
		return Low
	case runRisk < mediumBelow:
		return Medium
	default:
		return High
	}
}

// Percent converts a 0..1 fraction to a whole percent for display,
// rounding to nearest so 0.15999… shows as 16.
func Percent(x float64) int {
	return int(math.Round(x * 100))
}

// Request is one prediction query.
type Request struct {
	BaseID       string            `json:"base_glaze_id"`
	OverlayID    string            `json:"overlay_glaze_id,omitempty"`
	ClearCoat    glaze.ClearCoat   `json:"clear_coat"`
	BaseCoats    int               `json:"base_coats"`
	OverlayCoats int               `json:"overlay_coats"`
	Application  glaze.Application `json:"application"`
	Placement    glaze.Placement   `json:"placement"`
	TextureLevel int               `json:"texture_level"`
	UseRules     bool              `json:"use_rules"`
}

// HasOverlay reports whether an overlay glaze is selected.
func (r Request) HasOverlay() bool { return r.OverlayID != "" }

// Normalize clamps coat counts and texture into range, canonicalizes the
// enum spellings, and defaults an empty clear coat to none. It returns a
// description of each numeric adjustment. Unknown enum values are left
// for the caller to reject.
func (r Request) Normalize() (Request, []string) {
	var adj []string
	clampInt := func(name string, v *int, lo, hi int) {
		switch {
		case *v < lo:
			adj = append(adj, adjustment(name, *v, lo))
			*v = lo
		case *v > hi:
			adj = append(adj, adjustment(name, *v, hi))
			*v = hi
		}
	}
	clampInt("base_coats", &r.BaseCoats, MinBaseCoats, MaxBaseCoats)
	clampInt("overlay_coats", &r.OverlayCoats, MinOverlayCoats, MaxOverlayCoats)
	clampInt("texture_level", &r.TextureLevel, MinTexture, MaxTexture)
	if cc, err := glaze.ParseClearCoat(string(r.ClearCoat)); err == nil {
		r.ClearCoat = cc
	}
	if a, err := glaze.ParseApplication(string(r.Application)); err == nil {
		r.Application = a
	}
	if p, err := glaze.ParsePlacement(string(r.Placement)); err == nil {
		r.Placement = p
	}
	return r, adj
}

// RiskTerms is the additive breakdown of the run risk before clamping.
type RiskTerms struct {
	BaseFlow    float64 `json:"base_flow"`
	OverlayFlow float64 `json:"overlay_flow"`
	Coats       float64 `json:"coats"`
	Placement   float64 `json:"placement"`
	Application float64 `json:"application"`
	Texture     float64 `json:"texture"`
	Rule        float64 `json:"rule"`
}

// Sum adds the terms.
func (t RiskTerms) Sum() float64 {
	return t.BaseFlow + t.OverlayFlow + t.Coats + t.Placement + t.Application + t.Texture + t.Rule
}

// Result is a computed prediction. It is never persisted.
type Result struct {
	RunRisk         float64     `json:"run_risk"`
	RunLabel        RunLabel    `json:"run_label"`
	OverlayCoverage float64     `json:"overlay_coverage"`
	Variegation     float64     `json:"variegation"`
	Finish          string      `json:"finish"`
	MatchedRule     *rules.Rule `json:"matched_rule,omitempty"`
	RuleNote        string      `json:"rule_note,omitempty"`
	Terms           RiskTerms   `json:"terms"`
}

// Predict scores one combination. overlay is nil when no overlay is
// selected; in that case the overlay coat count is treated as 0 and no
// rule applies, since rules are keyed on an overlay glaze. rule is applied
// only when req.UseRules is set.
func Predict(req Request, base glaze.Record, overlay *glaze.Record, rule *rules.Rule) Result {
	var (
		overFlow, overOpacity float64
		overCoats             int
	)
	if overlay != nil {
		overFlow = overlay.Flow
		overOpacity = overlay.Opacity
		overCoats = req.OverlayCoats
	}

	var runDelta, coverFactor, variegationBoost float64
	applied := req.UseRules && rule != nil && overlay != nil
	if applied {
		runDelta = rule.RunRiskDelta
		coverFactor = rule.CoverFactor
		variegationBoost = rule.VariegationBoost
	}

	terms := RiskTerms{
		BaseFlow:    0.4 * base.Flow,
		OverlayFlow: 0.7 * overFlow,
		Coats:       float64(req.BaseCoats)*0.1 + float64(overCoats)*0.2,
		Placement:   placementRisk[req.Placement],
		Application: applicationRisk[req.Application],
		Texture:     float64(req.TextureLevel) * 0.02,
		Rule:        runDelta,
	}
	runRisk := clamp(terms.Sum(), 0, MaxRunRisk)

	coverage := clamp((overOpacity*0.6+coverFactor)*(float64(overCoats)/3.0), 0, 1)

	textureBonus := 0.0
	if req.Placement == glaze.OverTexture {
		textureBonus = 0.2
	}
	variegation := clamp(float64(req.TextureLevel)/10.0*0.4+variegationBoost+textureBonus, 0, 1)

	res := Result{
		RunRisk:         runRisk,
		RunLabel:        Label(runRisk),
		OverlayCoverage: coverage,
		Variegation:     variegation,
		Finish:          resolveFinish(req.ClearCoat, base, overlay),
		Terms:           terms,
	}
	if applied {
		matched := *rule
		res.MatchedRule = &matched
		res.RuleNote = rule.Notes
	}
	return res
}

// resolveFinish: a clear coat imposes its own finish; without one the
// top-most glaze's native finish shows.
func resolveFinish(cc glaze.ClearCoat, base glaze.Record, overlay *glaze.Record) string {
	if name := cc.FinishName(); name != "" {
		return name
	}
	if overlay != nil {
		return overlay.Finish
	}
	return base.Finish
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
