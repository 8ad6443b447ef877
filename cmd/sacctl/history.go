package main

import (
	"github.com/google/uuid"
	importapp "github.com/sac/membership/internal/application/import"
	"github.com/spf13/cobra"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect import runs",
	}

	var req importapp.ListRunsRequest
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := a.runs.ListRuns(ctx, req)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	list.Flags().StringVar(&req.Kind, "kind", "", "importer: groups, people, memberships or qualifications")
	list.Flags().StringVar(&req.Status, "status", "", "run status, e.g. completed or failed")
	list.Flags().IntVar(&req.Limit, "limit", 20, "maximum number of runs")
	list.Flags().StringVar(&req.OrderBy, "sort", "created_at", "created_at, completed_at, file_name, total_rows or error_rows")
	list.Flags().StringVar(&req.OrderDir, "order", "desc", "asc or desc")

	cmd.AddCommand(list, &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its recorded row issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			ctx, a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			run, err := a.runs.GetRun(ctx, id)
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run)
		},
	})
	return cmd
}
