// Package resources implements MCP resource handlers for the glaze data.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (kiln://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	CatalogURI = "kiln://catalog"
	RulesURI   = "kiln://rules"
	StatsURI   = "kiln://experiments/stats"
)

// Catalog lists every glaze record.
type Catalog interface {
	All() []glaze.Record
}

// Rules lists every correction rule.
type Rules interface {
	All() []rules.Rule
}

// Stats summarizes the experiment log.
type Stats interface {
	Stats(topN int) (*experiments.Stats, error)
}

// Handler manages kiln resource endpoints.
type Handler struct {
	catalog Catalog
	rules   Rules
	stats   Stats
}

// NewHandler creates a resource Handler with its dependencies. stats may
// be nil when the experiment log is unavailable.
func NewHandler(catalog Catalog, rules Rules, stats Stats) *Handler {
	return &Handler{catalog: catalog, rules: rules, stats: stats}
}

// CatalogResource returns the MCP resource definition for the glaze catalog.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		CatalogURI,
		"Glaze Catalog",
		mcp.WithResourceDescription("Every glaze in the inventory with flow, opacity and finish"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCatalog returns the catalog as JSON.
func (h *Handler) HandleCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.catalog.All())
}

// RulesResource returns the MCP resource definition for the rule table.
func (h *Handler) RulesResource() mcp.Resource {
	return mcp.NewResource(
		RulesURI,
		"Correction Rules",
		mcp.WithResourceDescription("Saved correction rules, in file order"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRules returns the rule table as JSON.
func (h *Handler) HandleRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rs := h.rules.All()
	if rs == nil {
		rs = []rules.Rule{}
	}
	return jsonResource(req.Params.URI, rs)
}

// StatsResource returns the MCP resource definition for experiment stats.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Experiment Statistics",
		mcp.WithResourceDescription("Firing counts and the most-tested combinations"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns experiment log statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.stats == nil {
		return errorResource(req.Params.URI, "experiment log is not available"), nil
	}
	stats, err := h.stats.Stats(10)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, stats)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
