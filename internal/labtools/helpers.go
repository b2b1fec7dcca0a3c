// Package labtools provides MCP tool handlers for the experiment log.
//
// Each tool handler follows the same pattern as internal/tools:
// - A struct with dependencies (experiments.Store) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools are storage tools: they record what came out of the kiln and read
// it back. They never change the correction rules.
package labtools

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatPtrArg returns nil when the key is absent so "not observed" stays
// distinct from zero.
func floatPtrArg(req mcp.CallToolRequest, key string) *float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

// combo renders "base over overlay (clear)" for one logged firing.
func combo(e experiments.Experiment) string {
	s := e.BaseGlazeID
	if e.OverlayGlazeID != "" {
		s += " over " + e.OverlayGlazeID
	}
	if e.ClearCoat != "" && e.ClearCoat != "none" {
		s += " + " + e.ClearCoat + " clear"
	}
	return s
}

// formatExperiment renders one experiment as a markdown block.
func formatExperiment(e experiments.Experiment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", combo(e))
	fmt.Fprintf(&sb, "- **ID**: %s\n", e.ID)
	fmt.Fprintf(&sb, "- **Logged**: %s\n", e.CreatedAt)
	fmt.Fprintf(&sb, "- **Coats**: %d base / %d overlay\n", e.BaseCoats, e.OverlayCoats)
	fmt.Fprintf(&sb, "- **Application**: %s, %s, texture %d\n", e.Application, e.Placement, e.TextureLevel)
	fmt.Fprintf(&sb, "- **Cone**: %s\n", e.FiringCone)
	if e.ObservedRunLabel != "" {
		fmt.Fprintf(&sb, "- **Observed run**: %s\n", e.ObservedRunLabel)
	}
	if e.ObservedCoveragePct != nil {
		fmt.Fprintf(&sb, "- **Observed coverage**: %g%%\n", *e.ObservedCoveragePct)
	}
	if e.ObservedVariegationPct != nil {
		fmt.Fprintf(&sb, "- **Observed variegation**: %g%%\n", *e.ObservedVariegationPct)
	}
	if e.KilnNotes != "" {
		fmt.Fprintf(&sb, "- **Kiln notes**: %s\n", e.KilnNotes)
	}
	if e.Notes != "" {
		fmt.Fprintf(&sb, "- **Notes**: %s\n", e.Notes)
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
