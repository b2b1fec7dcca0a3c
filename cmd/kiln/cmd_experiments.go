package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/spf13/cobra"
)

func (c *cli) experimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"exp"},
		Short:   "Browse the firing experiment log",
	}
	cmd.AddCommand(c.experimentsListCmd())
	return cmd
}

func (c *cli) experimentsListCmd() *cobra.Command {
	var opts experiments.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged firings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			es, err := c.openLog()
			if err != nil {
				return err
			}
			defer es.Close()

			exps, err := es.List(opts)
			if err != nil {
				return err
			}
			if len(exps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No experiments logged yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLOGGED\tBASE\tOVERLAY\tCLEAR\tCOATS\tPLACEMENT\tCONE\tRUN\tCOVERAGE")
			for _, e := range exps {
				cov := "-"
				if e.ObservedCoveragePct != nil {
					cov = fmt.Sprintf("%g%%", *e.ObservedCoveragePct)
				}
				run := e.ObservedRunLabel
				if run == "" {
					run = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\t%s\t%s\n",
					e.ID, e.CreatedAt, e.BaseGlazeID, e.OverlayGlazeID, e.ClearCoat,
					e.BaseCoats, e.OverlayCoats, e.Placement, e.FiringCone, run, cov)
			}
			return w.Flush()
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.BaseGlazeID, "base", "", "only firings with this base glaze")
	fs.StringVar(&opts.OverlayGlazeID, "overlay", "", "only firings with this overlay glaze")
	fs.StringVar(&opts.ClearCoat, "clear-coat", "", "only firings with this clear coat")
	fs.IntVar(&opts.Limit, "limit", 0, "maximum rows (0 = configured maximum, -1 = all)")
	return cmd
}
