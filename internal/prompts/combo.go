// Package prompts implements MCP prompt handlers for glaze testing.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ComboPrompt handles the glaze-combo MCP prompt.
// It walks through predicting, previewing and correcting one combination.
type ComboPrompt struct{}

// NewComboPrompt creates a ComboPrompt.
func NewComboPrompt() *ComboPrompt {
	return &ComboPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ComboPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("glaze-combo",
		mcp.WithPromptDescription(
			"Try a glaze combination: predict how it fires, look at a preview, "+
				"and save a correction rule if the kiln disagrees.",
		),
		mcp.WithArgument("base",
			mcp.ArgumentDescription("Catalog id of the base glaze (e.g. 'PC-59')"),
		),
		mcp.WithArgument("overlay",
			mcp.ArgumentDescription("Catalog id of the overlay glaze. Leave empty for a single glaze."),
		),
	)
}

// Handle processes the glaze-combo prompt request.
func (p *ComboPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	base, overlay := "", ""
	if args := req.Params.Arguments; args != nil {
		base = args["base"]
		overlay = args["overlay"]
	}

	subject := "a glaze combination"
	first := "1. Ask me which base and overlay glazes I want to try. Use `glaze_catalog` to look up ids if I give names.\n"
	switch {
	case base != "" && overlay != "":
		subject = fmt.Sprintf("%s over %s", overlay, base)
		first = fmt.Sprintf("1. Use base_glaze_id='%s' and overlay_glaze_id='%s'. Confirm both with `glaze_catalog`.\n", base, overlay)
	case base != "":
		subject = base + " on its own"
		first = fmt.Sprintf("1. Use base_glaze_id='%s' with no overlay. Confirm it with `glaze_catalog`.\n", base)
	}

	return &mcp.GetPromptResult{
		Description: "Try " + subject,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"I want to try " + subject + ".\n\n" +
						"Please:\n" +
						first +
						"2. Ask me for coats, application, placement, clear coat and texture if I haven't said\n" +
						"3. Run `glaze_predict` with use_rules=true and explain the run risk in plain words\n" +
						"4. Run `glaze_preview` so I can see roughly what to expect\n" +
						"5. After I fire a tile, record it with `experiment_log`\n" +
						"6. If the result disagrees with the prediction, propose values and save them with `rule_save`",
				),
			},
		},
	}, nil
}
