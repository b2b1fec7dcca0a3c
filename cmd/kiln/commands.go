package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HendryAvila/kiln/internal/catalog"
	"github.com/HendryAvila/kiln/internal/config"
	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/rules"
	kilnserver "github.com/HendryAvila/kiln/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// cli carries the state shared by every subcommand once the root
// command has loaded the configuration.
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.AppConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "kiln",
		Short: "Predict how glaze combinations fire",
		Long: `kiln scores a base glaze, an optional overlay and an optional clear coat
for run risk, overlay coverage, variegation and finish, applies correction
rules learned from fired tiles, and draws preview swatches.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		c.serveCmd(),
		c.predictCmd(),
		c.previewCmd(),
		c.rulesCmd(),
		c.experimentsCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration and builds the stderr logger. stdout is
// the MCP transport under serve, so nothing logs there.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, info, err := config.LoadConfigWithInfo(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	c.logger.Debug("config loaded", "path", info.Path, "file_found", info.FileFound, "env", info.EnvKeys)
	return nil
}

// engine loads the catalog and rule table without touching the
// experiment log.
func (c *cli) engine() (*catalog.Catalog, *rules.Store, *predict.Engine, error) {
	cat, err := catalog.Load(c.cfg.Data.CatalogPath)
	if err != nil {
		return nil, nil, nil, err
	}
	kilnserver.LogCatalog(c.logger, cat)
	store := rules.NewStore(c.cfg.Data.RulesPath, c.logger)
	return cat, store, predict.NewEngine(cat, store), nil
}

func (c *cli) openLog() (*experiments.Store, error) {
	dir, err := config.EnsureDataDir(c.cfg)
	if err != nil {
		return nil, err
	}
	ecfg := experiments.DefaultConfig()
	ecfg.DataDir = dir
	return experiments.New(ecfg)
}

// ─── serve ───────────────────────────────────────────────────────────────────

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := kilnserver.New(c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			// Graceful shutdown on interrupt.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stdio := server.NewStdioServer(s)
			return stdio.Listen(ctx, os.Stdin, os.Stdout)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kiln version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "kiln v%s\n", kilnserver.Version)
			return nil
		},
	}
}
