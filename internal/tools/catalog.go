package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/catalog"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/mark3labs/mcp-go/mcp"
)

// CatalogTool handles the glaze_catalog MCP tool.
type CatalogTool struct {
	catalog *catalog.Catalog
}

// NewCatalogTool creates a CatalogTool.
func NewCatalogTool(c *catalog.Catalog) *CatalogTool {
	return &CatalogTool{catalog: c}
}

// Definition returns the MCP tool definition for glaze_catalog.
func (t *CatalogTool) Definition() mcp.Tool {
	return mcp.NewTool("glaze_catalog",
		mcp.WithDescription(
			"List glazes in the studio inventory with their flow, opacity and finish. "+
				"Use this to find the ids that glaze_predict and rule_save expect.",
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive filter on id, brand or name (default: all glazes)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum glazes to list (default: 50)"),
		),
	)
}

// Handle processes the glaze_catalog tool call.
func (t *CatalogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	limit := intArg(req, "limit", 50)

	found := t.catalog.Search(query)
	if len(found) == 0 {
		if query == "" {
			return mcp.NewToolResultText("The glaze catalog is empty."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("No glazes match %q.", query)), nil
	}

	shown := len(found)
	if limit > 0 && limit < shown {
		shown = limit
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Glazes (%d of %d)\n\n", shown, t.catalog.Len())
	sb.WriteString("| id | glaze | flow | opacity | finish |\n|---|---|---|---|---|\n")
	for i, g := range found {
		if i >= shown {
			fmt.Fprintf(&sb, "\n... %d more. Narrow the query to see them.\n", len(found)-shown)
			break
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			g.ID, g.DisplayName(), glaze.FormatFloat(g.Flow), glaze.FormatFloat(g.Opacity), g.Finish)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
