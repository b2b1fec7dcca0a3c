package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the kiln-review MCP prompt.
// It instructs the AI to compare logged firings against predictions.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("kiln-review",
		mcp.WithPromptDescription(
			"Review the experiment log: which combinations have been fired most, "+
				"where the kiln disagreed with predictions, and which rules to add.",
		),
	)
}

// Handle processes the kiln-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Kiln Review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `experiment_stats` and `rule_list` to see what I've tested.\n\n" +
						"Then:\n" +
						"1. For each of the most-tested combinations, run `experiment_list` filtered to it\n" +
						"2. Run `glaze_predict` with use_rules=true for the same inputs\n" +
						"3. Point out where observed run, coverage or variegation keeps missing the prediction\n" +
						"4. Suggest rule values for those combinations and ask before calling `rule_save`",
				),
			},
		},
	}, nil
}
