package predict

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/rules"
)

// ErrUnknownGlaze is returned when a request names a glaze id that is not
// in the catalog. A prediction without a valid base glaze is meaningless,
// so this is never defaulted.
var ErrUnknownGlaze = errors.New("unknown glaze")

// Catalog resolves glaze ids.
type Catalog interface {
	Lookup(id string) (glaze.Record, error)
}

// RuleFinder looks up correction rules by composite key.
type RuleFinder interface {
	Find(key rules.Key) (rules.Rule, bool)
}

// Engine binds the pure scoring function to a catalog and a rule store.
type Engine struct {
	catalog Catalog
	rules   RuleFinder
}

// NewEngine creates an Engine. finder may be nil, in which case no rule
// ever matches.
func NewEngine(catalog Catalog, finder RuleFinder) *Engine {
	return &Engine{catalog: catalog, rules: finder}
}

// Outcome is a prediction plus the inputs it was computed from.
type Outcome struct {
	Request     Request       `json:"request"`
	Base        glaze.Record  `json:"base"`
	Overlay     *glaze.Record `json:"overlay,omitempty"`
	Result      Result        `json:"result"`
	Adjustments []string      `json:"adjustments,omitempty"`
}

// Predict normalizes req, resolves its glazes, consults the rule store
// when req.UseRules is set and an overlay is selected, and scores it.
func (e *Engine) Predict(req Request) (Outcome, error) {
	req, adj := req.Normalize()
	if err := checkEnums(req); err != nil {
		return Outcome{}, err
	}

	base, err := e.catalog.Lookup(req.BaseID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: base %q: %v", ErrUnknownGlaze, req.BaseID, err)
	}

	var overlay *glaze.Record
	if req.HasOverlay() {
		o, err := e.catalog.Lookup(req.OverlayID)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: overlay %q: %v", ErrUnknownGlaze, req.OverlayID, err)
		}
		overlay = &o
	}

	var rule *rules.Rule
	if req.UseRules && overlay != nil && e.rules != nil {
		key := rules.Key{Base: req.BaseID, Overlay: req.OverlayID, ClearCoat: req.ClearCoat}
		if r, ok := e.rules.Find(key); ok {
			rule = &r
		}
	}

	return Outcome{
		Request:     req,
		Base:        base,
		Overlay:     overlay,
		Result:      Predict(req, base, overlay, rule),
		Adjustments: adj,
	}, nil
}

func checkEnums(req Request) error {
	if _, err := glaze.ParseClearCoat(string(req.ClearCoat)); err != nil {
		return err
	}
	if _, ok := applicationRisk[req.Application]; !ok {
		return fmt.Errorf("application %q: %w", req.Application, glaze.ErrInvalidValue)
	}
	if _, ok := placementRisk[req.Placement]; !ok {
		return fmt.Errorf("placement %q: %w", req.Placement, glaze.ErrInvalidValue)
	}
	return nil
}

func adjustment(name string, from, to int) string {
	return name + " " + strconv.Itoa(from) + " clamped to " + strconv.Itoa(to)
}
