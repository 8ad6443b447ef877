package main

import (
	"fmt"
	"time"

	"github.com/sac/membership/internal/application/export"
	"github.com/sac/membership/internal/infrastructure/tabular"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	on     string
	year   int
	format string
	async  bool
}

func newExportCmd(c *cli) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <kind> <layer>",
		Short: "Export a section table to the artifact store",
		Long: "Kinds: sac_mitglieder, mitglieder_statistik, qualifikationen, personen.\n" +
			"The layer is a section or Ortsgruppe given by id or Navision id.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := export.ParseKind(args[0])
			if err != nil {
				return err
			}
			formatName := opts.format
			if formatName == "" {
				formatName = c.cfg.Export.DefaultFormat
			}
			format, err := tabular.ParseFormat(formatName)
			if err != nil {
				return err
			}
			req := export.Request{Kind: kind, Year: opts.year}
			if opts.on != "" {
				if req.On, err = time.ParseInLocation(dateLayout, opts.on, time.Local); err != nil {
					return fmt.Errorf("invalid --on date: %w", err)
				}
			}

			ctx, a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			layer, err := a.group(ctx, args[1])
			if err != nil {
				return err
			}
			req.LayerID = layer.ID

			if opts.async {
				if err := a.exporter.Enqueue(ctx, req, format); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "export queued")
				return nil
			}
			artifact, err := a.exporter.Export(ctx, req, format)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows, %d bytes\n", artifact.Key, artifact.Rows, artifact.Size)
			fmt.Fprintln(out, artifact.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.on, "on", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "statistics year (default year of --on)")
	cmd.Flags().StringVar(&opts.format, "format", "", "csv or xlsx (default export.default_format)")
	cmd.Flags().BoolVar(&opts.async, "async", false, "hand the export to the job runner and return")
	return cmd
}
