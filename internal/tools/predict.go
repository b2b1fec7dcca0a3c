package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/mark3labs/mcp-go/mcp"
)

// PredictTool handles the glaze_predict MCP tool.
type PredictTool struct {
	engine *predict.Engine
}

// NewPredictTool creates a PredictTool backed by engine.
func NewPredictTool(engine *predict.Engine) *PredictTool {
	return &PredictTool{engine: engine}
}

// Definition returns the MCP tool definition for glaze_predict.
func (t *PredictTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Predict how a glaze combination fires: run risk (Low/Medium/High), overlay coverage, " +
				"variegation and finish. Set use_rules to apply a saved correction rule for the exact " +
				"base + overlay + clear coat combination.",
		),
	}, ComboOptions()...)
	opts = append(opts,
		mcp.WithBoolean("use_rules",
			mcp.Description("Apply a saved correction rule when one matches (default: false)"),
		),
	)
	return mcp.NewTool("glaze_predict", opts...)
}

// Handle processes the glaze_predict tool call.
func (t *PredictTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := ComboRequest(req)
	if r.BaseID == "" {
		return mcp.NewToolResultError("'base_glaze_id' is required"), nil
	}
	r.UseRules = boolArg(req, "use_rules", false)

	out, err := t.engine.Predict(r)
	if err != nil {
		return PredictionError(err), nil
	}
	return mcp.NewToolResultText(FormatOutcome(out)), nil
}

// PredictionError turns an engine error into a tool error result.
func PredictionError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, predict.ErrUnknownGlaze):
		return mcp.NewToolResultError(fmt.Sprintf("%v. Use glaze_catalog to find valid ids.", err))
	case errors.Is(err, glaze.ErrInvalidValue):
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameter: %v", err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("prediction failed: %v", err))
	}
}
