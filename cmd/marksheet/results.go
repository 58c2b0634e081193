package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"marksheet/internal/app"
	"marksheet/internal/service/excel"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect and edit the aggregated marks",
	}
	cmd.AddCommand(newResultsListCommand(ctx))
	cmd.AddCommand(newResultsDeleteCommand(ctx))
	cmd.AddCommand(newResultsClearCommand(ctx))
	return cmd
}

func newResultsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the aggregated marks table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				agg := a.Results.Snapshot()
				if agg.Count() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No aggregated sheets.")
					return nil
				}
				table := excel.NewExporter().Table(agg)
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(table[0], table[1:], markAligns(len(table[0]))))
				return nil
			})
		},
	}
}

func newResultsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <regNo>",
		Short: "Remove one aggregated sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				if !a.Results.Has(args[0]) {
					return fmt.Errorf("sheet %s not found", args[0])
				}
				agg, err := a.Results.Delete(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d sheets remain)\n", args[0], agg.Count())
				return nil
			})
		},
	}
}

func newResultsClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all aggregated marks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return ctx.withApp(func(a *app.App) error {
				if err := a.Results.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
