// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on abstractions.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/HendryAvila/kiln/internal/catalog"
	"github.com/HendryAvila/kiln/internal/config"
	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/HendryAvila/kiln/internal/labtools"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/preview"
	"github.com/HendryAvila/kiln/internal/prompts"
	"github.com/HendryAvila/kiln/internal/resources"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/HendryAvila/kiln/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps holds the concrete stores shared by the MCP server and the CLI.
type Deps struct {
	Catalog *catalog.Catalog
	Rules   *rules.Store
	Gallery *gallery.Gallery
	Engine  *predict.Engine
	Preview preview.Options

	// DataDir holds the experiment log and rule_export workbooks. It falls
	// back to the working directory when the configured one is unusable.
	DataDir string

	// Experiments is nil when the experiment log could not be opened.
	Experiments *experiments.Store

	logger *slog.Logger
}

// Open loads the catalog and rule table named by cfg and opens the
// experiment log. A missing or unreadable catalog is fatal. The experiment
// log is an independent subsystem: if it fails, Open logs a warning and
// leaves Deps.Experiments nil.
func Open(cfg *config.AppConfig, logger *slog.Logger) (*Deps, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := catalog.Load(cfg.Data.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading glaze catalog: %w", err)
	}
	LogCatalog(logger, cat)
	logger.Info("catalog loaded", "path", cfg.Data.CatalogPath, "glazes", cat.Len())

	ruleStore := rules.NewStore(cfg.Data.RulesPath, logger)
	logger.Info("rule table loaded", "path", ruleStore.Path(), "rules", ruleStore.Len())

	opts := preview.DefaultOptions()
	opts.Size = cfg.Preview.Size
	opts.Margin = cfg.Preview.Margin

	d := &Deps{
		Catalog: cat,
		Rules:   ruleStore,
		Gallery: gallery.New(cfg.Data.ImagesDir),
		Engine:  predict.NewEngine(cat, ruleStore),
		Preview: opts,
		DataDir: ".",
		logger:  logger,
	}

	dir, err := config.EnsureDataDir(cfg)
	if err == nil {
		d.DataDir = dir
		ecfg := experiments.DefaultConfig()
		ecfg.DataDir = dir
		d.Experiments, err = experiments.New(ecfg)
	}
	if err != nil {
		logger.Warn("experiment log disabled", "error", err)
	}
	return d, nil
}

// LogCatalog warns about every catalog cell recovered during load.
func LogCatalog(logger *slog.Logger, cat *catalog.Catalog) {
	for _, d := range cat.Defaulted {
		logger.Warn("catalog cell defaulted to 0", "glaze_id", d.GlazeID, "column", d.Column, "raw", d.Raw)
	}
	for _, c := range cat.Clamped {
		logger.Warn("catalog cell clamped into 0..1", "glaze_id", c.GlazeID, "column", c.Column, "raw", c.Raw, "value", c.Value)
	}
	for _, id := range cat.Duplicates {
		logger.Warn("duplicate catalog id ignored", "glaze_id", id)
	}
}

// Close releases the experiment log. Safe to call when it never opened.
func (d *Deps) Close() {
	if d.Experiments == nil {
		return
	}
	if err := d.Experiments.Close(); err != nil {
		d.logger.Warn("experiment store close", "error", err)
	}
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the experiment log's database
// connection and must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even if New failed.
func New(cfg *config.AppConfig, logger *slog.Logger) (*server.MCPServer, func(), error) {
	deps, err := Open(cfg, logger)
	if err != nil {
		return nil, noop, err
	}
	return NewWithDeps(deps), deps.Close, nil
}

// NewWithDeps builds the MCP server around already opened stores.
func NewWithDeps(d *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"kiln",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register glaze tools ---

	predictTool := tools.NewPredictTool(d.Engine)
	s.AddTool(predictTool.Definition(), predictTool.Handle)

	previewTool := tools.NewPreviewTool(d.Engine, d.Gallery, d.Preview)
	s.AddTool(previewTool.Definition(), previewTool.Handle)

	catalogTool := tools.NewCatalogTool(d.Catalog)
	s.AddTool(catalogTool.Definition(), catalogTool.Handle)

	imageTool := tools.NewImageSaveTool(d.Gallery)
	s.AddTool(imageTool.Definition(), imageTool.Handle)

	// --- Register rule tools ---

	findTool := tools.NewRuleFindTool(d.Rules, d.Gallery)
	s.AddTool(findTool.Definition(), findTool.Handle)

	saveTool := tools.NewRuleSaveTool(d.Rules, d.Catalog)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	listTool := tools.NewRuleListTool(d.Rules)
	s.AddTool(listTool.Definition(), listTool.Handle)

	// A nil *experiments.Store must not reach the interface as a typed nil.
	var lister tools.ExperimentLister
	var stats resources.Stats
	if d.Experiments != nil {
		lister = d.Experiments
		stats = d.Experiments
		registerLabTools(s, d.Experiments, d.Engine)
	}

	exportTool := tools.NewRuleExportTool(d.Rules, lister, d.DataDir)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	// --- Register prompts ---

	comboPrompt := prompts.NewComboPrompt()
	s.AddPrompt(comboPrompt.Definition(), comboPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	res := resources.NewHandler(d.Catalog, d.Rules, stats)
	s.AddResource(res.CatalogResource(), res.HandleCatalog)
	s.AddResource(res.RulesResource(), res.HandleRules)
	s.AddResource(res.StatsResource(), res.HandleStats)

	return s
}

// noop is a no-op cleanup function used when New fails.
func noop() {}

// registerLabTools registers the experiment log MCP tools with the server.
func registerLabTools(s *server.MCPServer, es *experiments.Store, engine *predict.Engine) {
	logTool := labtools.NewLogTool(es, engine)
	s.AddTool(logTool.Definition(), logTool.Handle)

	listTool := labtools.NewListTool(es)
	s.AddTool(listTool.Definition(), listTool.Handle)

	getTool := labtools.NewGetTool(es)
	s.AddTool(getTool.Definition(), getTool.Handle)

	deleteTool := labtools.NewDeleteTool(es)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	statsTool := labtools.NewStatsTool(es)
	s.AddTool(statsTool.Definition(), statsTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use kiln effectively.
func serverInstructions() string {
	return fmt.Sprintf(`You have access to kiln, a glaze-combination predictor for a pottery studio.

## STUDIO DEFAULTS

Predictions assume the studio's usual firing: cone 6 (medium), B-Mix clay,
bisque to cone 04. Experiments are logged at cone 6 unless the user says otherwise.

## WHAT kiln PREDICTS

For a base glaze, an optional overlay and an optional clear coat, glaze_predict returns:
- Run risk on a 0-%g scale with a label: Low (< 0.5), Medium (< 1.0), High (>= 1.0)
- Overlay coverage and variegation as percentages
- The finish (clear coat finish wins over the glaze finishes)

Inputs that are out of range (coats, texture) are clamped and reported in the reply.
Unknown glaze ids are an error: look them up with glaze_catalog first.

## CORRECTION RULES

A rule is keyed by base + overlay + clear coat and adjusts one exact combination
with a run risk delta, lighten/cover factors and a variegation boost. Rules only
apply when use_rules=true. Rules never apply without an overlay.

- rule_find: show the rule for one combination
- rule_save: create or replace a rule (values out of range are rejected, not clamped)
- rule_list: every rule, optionally filtered by glaze
- rule_export: write rules and experiments to an .xlsx workbook

## PREVIEWS

glaze_preview returns an image: the rule's official image link when it has one,
else the rule's saved photo (see image_save), else a generated swatch. Generated
swatches are illustrative only. Pass seed for a repeatable picture.

## EXPERIMENT LOG

When the user fires a test tile, record it with experiment_log. The reply shows
the current prediction beside the observation. When they disagree repeatedly,
suggest a correction rule and ask before saving it.

- experiment_list / experiment_get / experiment_delete: browse and fix the log
- experiment_stats: totals and the most-tested combinations

## WORKFLOW

1. glaze_catalog to find ids
2. glaze_predict (use_rules=true) and glaze_preview
3. Fire, then experiment_log
4. rule_save when the kiln disagrees`, predict.MaxRunRisk)
}
