package labtools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// Predictor scores a combination. *predict.Engine satisfies it.
type Predictor interface {
	Predict(req predict.Request) (predict.Outcome, error)
}

// LogTool handles the experiment_log MCP tool.
type LogTool struct {
	store  *experiments.Store
	engine Predictor
}

// NewLogTool creates a LogTool. The engine validates glaze ids and
// supplies the prediction shown next to what was observed.
func NewLogTool(store *experiments.Store, engine Predictor) *LogTool {
	return &LogTool{store: store, engine: engine}
}

// Definition returns the MCP tool definition for experiment_log.
func (t *LogTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Record a fired test tile: the combination as applied plus what came out of the kiln. " +
				"The reply puts the current prediction (saved rules applied) next to the observation " +
				"so you can decide whether a correction rule is needed.",
		),
	}, tools.ComboOptions()...)
	opts = append(opts,
		mcp.WithString("observed_run_label",
			mcp.Description("How much the glaze actually ran"),
			mcp.Enum(string(predict.Low), string(predict.Medium), string(predict.High)),
		),
		mcp.WithNumber("observed_overlay_coverage_pct",
			mcp.Description("Observed overlay coverage, 0-100"),
		),
		mcp.WithNumber("observed_variegation_pct",
			mcp.Description("Observed variegation, 0-100"),
		),
		mcp.WithString("firing_cone",
			mcp.Description(fmt.Sprintf("Cone the tile was fired to (default: %s)", experiments.DefaultCone)),
		),
		mcp.WithString("kiln_notes",
			mcp.Description("Schedule, hold or cooling notes"),
		),
		mcp.WithString("notes",
			mcp.Description("Anything else worth remembering about the tile"),
		),
	)
	return mcp.NewTool("experiment_log", opts...)
}

// Handle processes the experiment_log tool call.
func (t *LogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := tools.ComboRequest(req)
	if r.BaseID == "" {
		return mcp.NewToolResultError("'base_glaze_id' is required"), nil
	}

	params := experiments.AddParams{
		BaseGlazeID:            r.BaseID,
		OverlayGlazeID:         r.OverlayID,
		ClearCoat:              string(r.ClearCoat),
		BaseCoats:              r.BaseCoats,
		OverlayCoats:           r.OverlayCoats,
		Application:            string(r.Application),
		Placement:              string(r.Placement),
		TextureLevel:           r.TextureLevel,
		ObservedRunLabel:       strings.TrimSpace(req.GetString("observed_run_label", "")),
		ObservedCoveragePct:    floatPtrArg(req, "observed_overlay_coverage_pct"),
		ObservedVariegationPct: floatPtrArg(req, "observed_variegation_pct"),
		FiringCone:             strings.TrimSpace(req.GetString("firing_cone", "")),
		KilnNotes:              req.GetString("kiln_notes", ""),
		Notes:                  req.GetString("notes", ""),
	}

	// A tile is only worth logging against glazes the catalog knows.
	r.UseRules = true
	out, err := t.engine.Predict(r)
	if err != nil {
		return tools.PredictionError(err), nil
	}

	e, err := t.store.Add(params)
	if err != nil {
		if errors.Is(err, experiments.ErrInvalidEntry) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to log experiment: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("Logged experiment.\n\n")
	sb.WriteString(formatExperiment(*e))
	sb.WriteString("\n")
	sb.WriteString(tools.FormatOutcome(out))
	if hint := drift(*e, out.Result); hint != "" {
		sb.WriteString("\n")
		sb.WriteString(hint)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// drift points out where the kiln disagreed with the prediction.
func drift(e experiments.Experiment, res predict.Result) string {
	var diffs []string
	if e.ObservedRunLabel != "" && e.ObservedRunLabel != string(res.RunLabel) {
		diffs = append(diffs, fmt.Sprintf("run was %s, predicted %s", e.ObservedRunLabel, res.RunLabel))
	}
	if e.ObservedCoveragePct != nil {
		if d := *e.ObservedCoveragePct - float64(predict.Percent(res.OverlayCoverage)); d >= 10 || d <= -10 {
			diffs = append(diffs, fmt.Sprintf("coverage off by %+.0f points", d))
		}
	}
	if e.ObservedVariegationPct != nil {
		if d := *e.ObservedVariegationPct - float64(predict.Percent(res.Variegation)); d >= 10 || d <= -10 {
			diffs = append(diffs, fmt.Sprintf("variegation off by %+.0f points", d))
		}
	}
	if len(diffs) == 0 {
		return ""
	}
	return "Observed vs predicted: " + strings.Join(diffs, "; ") +
		". Consider rule_save for this combination.\n"
}
