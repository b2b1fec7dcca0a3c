package labtools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── ListTool ───────────────────────────────────────────────────────────────

// ListTool handles the experiment_list MCP tool.
type ListTool struct {
	store *experiments.Store
}

// NewListTool creates a ListTool with the given experiment store.
func NewListTool(store *experiments.Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for experiment_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("experiment_list",
		mcp.WithDescription(
			"List logged firings, newest first. Filter by base, overlay or clear coat to see "+
				"every tile made with one combination.",
		),
		mcp.WithString("base_glaze_id",
			mcp.Description("Only firings with this base glaze"),
		),
		mcp.WithString("overlay_glaze_id",
			mcp.Description("Only firings with this overlay glaze"),
		),
		mcp.WithString("clear_coat",
			mcp.Description("Only firings with this clear coat"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of firings to return (default: 20)"),
		),
	)
}

// Handle processes the experiment_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	exps, err := t.store.List(experiments.ListOptions{
		BaseGlazeID:    req.GetString("base_glaze_id", ""),
		OverlayGlazeID: req.GetString("overlay_glaze_id", ""),
		ClearCoat:      req.GetString("clear_coat", ""),
		Limit:          limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list experiments: %v", err)), nil
	}
	if len(exps) == 0 {
		return mcp.NewToolResultText("No experiments logged yet."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Experiments (%d)\n\n", len(exps))
	sb.WriteString("| ID | Logged | Combination | Coats | Placement | Run | Coverage |\n")
	sb.WriteString("|----|--------|-------------|-------|-----------|-----|----------|\n")
	for _, e := range exps {
		cov := "-"
		if e.ObservedCoveragePct != nil {
			cov = fmt.Sprintf("%g%%", *e.ObservedCoveragePct)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %d/%d | %s | %s | %s |\n",
			e.ID, e.CreatedAt, combo(e), e.BaseCoats, e.OverlayCoats,
			e.Placement, orDash(e.ObservedRunLabel), cov)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the experiment_get MCP tool.
type GetTool struct {
	store *experiments.Store
}

// NewGetTool creates a GetTool with the given experiment store.
func NewGetTool(store *experiments.Store) *GetTool {
	return &GetTool{store: store}
}

// Definition returns the MCP tool definition for experiment_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("experiment_get",
		mcp.WithDescription("Show every recorded detail of one logged firing."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Experiment ID from experiment_list"),
		),
	)
}

// Handle processes the experiment_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	e, err := t.store.Get(id)
	if err != nil {
		if errors.Is(err, experiments.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("experiment %s not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to get experiment: %v", err)), nil
	}
	return mcp.NewToolResultText(formatExperiment(*e)), nil
}

// ─── DeleteTool ─────────────────────────────────────────────────────────────

// DeleteTool handles the experiment_delete MCP tool.
type DeleteTool struct {
	store *experiments.Store
}

// NewDeleteTool creates a DeleteTool with the given experiment store.
func NewDeleteTool(store *experiments.Store) *DeleteTool {
	return &DeleteTool{store: store}
}

// Definition returns the MCP tool definition for experiment_delete.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("experiment_delete",
		mcp.WithDescription("Permanently delete a logged firing, e.g. one entered against the wrong glaze."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Experiment ID to delete"),
		),
	)
}

// Handle processes the experiment_delete tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if err := t.store.Delete(id); err != nil {
		if errors.Is(err, experiments.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("experiment %s not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete experiment: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Experiment %s deleted", id)), nil
}

// ─── StatsTool ──────────────────────────────────────────────────────────────

// StatsTool handles the experiment_stats MCP tool.
type StatsTool struct {
	store *experiments.Store
}

// NewStatsTool creates a StatsTool with the given experiment store.
func NewStatsTool(store *experiments.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for experiment_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("experiment_stats",
		mcp.WithDescription(
			"Show experiment log statistics: total firings, distinct combinations, observed run "+
				"labels and the most-tested combinations.",
		),
		mcp.WithNumber("top",
			mcp.Description("How many combinations to rank (default: 5)"),
		),
	)
}

// Handle processes the experiment_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats(intArg(req, "top", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Experiment Statistics\n\n")
	fmt.Fprintf(&sb, "- **Firings**: %d\n", stats.TotalExperiments)
	fmt.Fprintf(&sb, "- **Combinations**: %d\n", stats.Combinations)

	if len(stats.ByRunLabel) > 0 {
		labels := make([]string, 0, len(stats.ByRunLabel))
		for l := range stats.ByRunLabel {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		parts := make([]string, len(labels))
		for i, l := range labels {
			parts[i] = fmt.Sprintf("%s %d", l, stats.ByRunLabel[l])
		}
		fmt.Fprintf(&sb, "- **Observed runs**: %s\n", strings.Join(parts, ", "))
	} else {
		sb.WriteString("- **Observed runs**: none\n")
	}

	if len(stats.TopCombos) > 0 {
		sb.WriteString("\n### Most tested\n\n")
		for _, c := range stats.TopCombos {
			e := experiments.Experiment{BaseGlazeID: c.BaseGlazeID, OverlayGlazeID: c.OverlayGlazeID, ClearCoat: c.ClearCoat}
			fmt.Fprintf(&sb, "- %s: %d\n", combo(e), c.Firings)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
