package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/export"
	"github.com/mark3labs/mcp-go/mcp"
)

// ExperimentLister is the part of experiments.Store the export uses.
type ExperimentLister interface {
	List(opts experiments.ListOptions) ([]experiments.Experiment, error)
}

// RuleExportTool handles the rule_export MCP tool.
type RuleExportTool struct {
	store RuleStore
	log   ExperimentLister
	dir   string
}

// NewRuleExportTool creates a RuleExportTool writing workbooks under dir.
// log may be nil when the experiment log is unavailable; the workbook then
// has only the Rules sheet.
func NewRuleExportTool(store RuleStore, log ExperimentLister, dir string) *RuleExportTool {
	return &RuleExportTool{store: store, log: log, dir: dir}
}

// Definition returns the MCP tool definition for rule_export.
func (t *RuleExportTool) Definition() mcp.Tool {
	return mcp.NewTool("rule_export",
		mcp.WithDescription(
			"Write the correction rules, and the experiment log when available, to an .xlsx workbook.",
		),
		mcp.WithString("path",
			mcp.Description("Output file ending in .xlsx, relative to the kiln data directory (default: glaze_rules.xlsx)"),
		),
		mcp.WithBoolean("include_experiments",
			mcp.Description("Add an Experiments sheet (default: true)"),
		),
	)
}

// Handle processes the rule_export tool call.
func (t *RuleExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("path", "glaze_rules.xlsx"))
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return mcp.NewToolResultError("'path' must end in .xlsx"), nil
	}
	if !filepath.IsLocal(path) {
		return mcp.NewToolResultError("'path' must be relative to the data directory and must not contain '..'"), nil
	}
	path = filepath.Join(t.dir, path)

	rs := t.store.All()
	var exps []experiments.Experiment
	if t.log != nil && boolArg(req, "include_experiments", true) {
		var err error
		exps, err = t.log.List(experiments.ListOptions{Limit: -1})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read experiments: %v", err)), nil
		}
		if exps == nil {
			exps = []experiments.Experiment{}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export: %v", err)), nil
	}
	if err := export.WriteFile(path, rs, exps); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export: %v", err)), nil
	}

	msg := fmt.Sprintf("Exported %d rules", len(rs))
	if exps != nil {
		msg += fmt.Sprintf(" and %d experiments", len(exps))
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s to %s.", msg, path)), nil
}
