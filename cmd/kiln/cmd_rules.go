package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/export"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/spf13/cobra"
)

func (c *cli) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and edit the correction-rule table",
	}
	cmd.AddCommand(c.rulesListCmd(), c.rulesSaveCmd(), c.rulesExportCmd())
	return cmd
}

func (c *cli) rulesListCmd() *cobra.Command {
	var glazeID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every saved rule in file order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := rules.NewStore(c.cfg.Data.RulesPath, c.logger)
			var shown []rules.Rule
			for _, r := range store.All() {
				if glazeID == "" || r.BaseGlazeID == glazeID || r.OverlayGlazeID == glazeID {
					shown = append(shown, r)
				}
			}
			if len(shown) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rules yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BASE\tOVERLAY\tCLEAR\tRUN\tLIGHTEN\tCOVER\tVARIEGATION\tNOTES")
			for _, r := range shown {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.BaseGlazeID, r.OverlayGlazeID, r.ClearCoat,
					glaze.FormatFloat(r.RunRiskDelta), glaze.FormatFloat(r.LightenFactor),
					glaze.FormatFloat(r.CoverFactor), glaze.FormatFloat(r.VariegationBoost), r.Notes)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&glazeID, "glaze", "", "only rules where this glaze is the base or the overlay")
	return cmd
}

func (c *cli) rulesSaveCmd() *cobra.Command {
	var (
		r         rules.Rule
		clearCoat string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or replace the rule for one combination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, store, _, err := c.engine()
			if err != nil {
				return err
			}
			cc, err := glaze.ParseClearCoat(clearCoat)
			if err != nil {
				return err
			}
			r.ClearCoat = cc
			for _, id := range []string{r.BaseGlazeID, r.OverlayGlazeID} {
				if !cat.Has(id) {
					return fmt.Errorf("unknown glaze %q", id)
				}
			}

			res, err := store.Save(r)
			if err != nil {
				return err
			}
			verb := "Updated"
			if res.Created {
				verb = "Saved new"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s rule for %s (%d rows in %s)\n", verb, r.Key(), res.Rows, store.Path())
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&r.BaseGlazeID, "base", "", "base glaze id (required)")
	fs.StringVar(&r.OverlayGlazeID, "overlay", "", "overlay glaze id (required)")
	fs.StringVar(&clearCoat, "clear-coat", string(glaze.ClearNone), "none, gloss or satin_matte")
	fs.Float64Var(&r.RunRiskDelta, "run-risk-delta", 0, "added to run risk, -1..1")
	fs.Float64Var(&r.LightenFactor, "lighten-factor", 0, "0..1, recorded only")
	fs.Float64Var(&r.CoverFactor, "cover-factor", 0, "added to overlay coverage, 0..1")
	fs.Float64Var(&r.VariegationBoost, "variegation-boost", 0, "added to variegation, 0..1")
	fs.StringVar(&r.ImageURL, "image-url", "", "official image URL")
	fs.StringVar(&r.LocalImage, "local-image", "", "photo filename in the images directory")
	fs.StringVar(&r.PreviewBaseHex, "preview-base-hex", "", "preview base color, #rrggbb")
	fs.StringVar(&r.PreviewOverlayHex, "preview-overlay-hex", "", "preview overlay color, #rrggbb")
	fs.StringVar(&r.ReferenceURL, "reference-url", "", "link to a chart or PDF")
	fs.StringVar(&r.Notes, "notes", "", "what you saw")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("overlay")
	return cmd
}

func (c *cli) rulesExportCmd() *cobra.Command {
	var (
		out     string
		withLog bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the rules, and the experiment log, to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(filepath.Ext(out), ".xlsx") {
				return fmt.Errorf("--out must end in .xlsx (got %q)", out)
			}
			rs := rules.NewStore(c.cfg.Data.RulesPath, c.logger).All()

			var exps []experiments.Experiment
			if withLog {
				es, err := c.openLog()
				if err != nil {
					c.logger.Warn("experiment log unavailable, exporting rules only", "error", err)
				} else {
					defer es.Close()
					if exps, err = es.List(experiments.ListOptions{Limit: -1}); err != nil {
						return err
					}
					if exps == nil {
						exps = []experiments.Experiment{}
					}
				}
			}

			if err := export.WriteFile(out, rs, exps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rules", len(rs))
			if exps != nil {
				fmt.Fprintf(cmd.OutOrStdout(), " and %d experiments", len(exps))
			}
			fmt.Fprintf(cmd.OutOrStdout(), " to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "glaze_rules.xlsx", "workbook to write")
	cmd.Flags().BoolVar(&withLog, "experiments", true, "add an Experiments sheet")
	return cmd
}
