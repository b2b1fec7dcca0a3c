package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/predict"
	"github.com/HendryAvila/kiln/internal/preview"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/HendryAvila/kiln/internal/tools"
	"github.com/spf13/cobra"
)

// comboFlags are the combination inputs shared by predict and preview.
// Defaults match the MCP tools.
type comboFlags struct {
	base, overlay, clearCoat string
	application, placement  string
	baseCoats, overlayCoats int
	texture                 int
	useRules                bool
}

func (f *comboFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.base, "base", "", "base glaze id (required)")
	fs.StringVar(&f.overlay, "overlay", "", "overlay glaze id")
	fs.StringVar(&f.clearCoat, "clear-coat", string(glaze.ClearNone), "none, gloss or satin_matte")
	fs.IntVar(&f.baseCoats, "base-coats", 2, "base coats, 1-5")
	fs.IntVar(&f.overlayCoats, "overlay-coats", 1, "overlay coats, 0-4")
	fs.StringVar(&f.application, "application", string(glaze.Brushed), "brushed, dipped or poured")
	fs.StringVar(&f.placement, "placement", string(glaze.Flat), "flat, vertical_wall, rim, inside_bowl or over_texture")
	fs.IntVar(&f.texture, "texture", 4, "surface texture, 0-10")
	fs.BoolVar(&f.useRules, "use-rules", false, "apply a saved correction rule when one matches")
	_ = cmd.MarkFlagRequired("base")
}

func (f *comboFlags) request() predict.Request {
	return predict.Request{
		BaseID:       f.base,
		OverlayID:    f.overlay,
		ClearCoat:    glaze.ClearCoat(f.clearCoat),
		BaseCoats:    f.baseCoats,
		OverlayCoats: f.overlayCoats,
		Application:  glaze.Application(f.application),
		Placement:    glaze.Placement(f.placement),
		TextureLevel: f.texture,
		UseRules:     f.useRules,
	}
}

// ─── predict ─────────────────────────────────────────────────────────────────

func (c *cli) predictCmd() *cobra.Command {
	var (
		combo  comboFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a glaze combination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, engine, err := c.engine()
			if err != nil {
				return err
			}
			out, err := engine.Predict(combo.request())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprint(cmd.OutOrStdout(), tools.FormatOutcome(out))
			return nil
		},
	}
	combo.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the prediction as JSON")
	return cmd
}

// ─── preview ─────────────────────────────────────────────────────────────────

func (c *cli) previewCmd() *cobra.Command {
	var (
		combo      comboFlags
		out        string
		seed       uint64
		baseHex    string
		overlayHex string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Draw a preview swatch for a glaze combination as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			_, _, engine, err := c.engine()
			if err != nil {
				return err
			}
			o, err := engine.Predict(combo.request())
			if err != nil {
				return err
			}

			if baseHex == "" {
				baseHex = rules.DefaultPreviewBaseHex
				if m := o.Result.MatchedRule; m != nil && m.PreviewBaseHex != "" {
					baseHex = m.PreviewBaseHex
				}
			}
			if overlayHex == "" {
				overlayHex = rules.DefaultPreviewOverlayHex
				if m := o.Result.MatchedRule; m != nil && m.PreviewOverlayHex != "" {
					overlayHex = m.PreviewOverlayHex
				}
			}

			var rnd *rand.Rand
			if cmd.Flags().Changed("seed") {
				rnd = rand.New(rand.NewPCG(seed, 0))
			}
			opts := preview.DefaultOptions()
			opts.Size = c.cfg.Preview.Size
			opts.Margin = c.cfg.Preview.Margin
			render := preview.Synthesize(preview.Params{
				Base:        preview.ParseHex(baseHex, preview.FallbackBase),
				Overlay:     preview.ParseHex(overlayHex, preview.FallbackOverlay),
				Coverage:    o.Result.OverlayCoverage,
				RunRisk:     o.Result.RunRisk,
				Variegation: o.Result.Variegation,
			}, opts, rnd)

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := preview.EncodePNG(f, render.Image); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d drips, %d speckles)\n", out, len(render.Drips), render.Speckles)
			return nil
		},
	}
	combo.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG file to write (required)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for a repeatable picture")
	cmd.Flags().StringVar(&baseHex, "base-hex", "", "base color, #rrggbb")
	cmd.Flags().StringVar(&overlayHex, "overlay-hex", "", "overlay color, #rrggbb")
	return cmd
}
