package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marksheet/internal/app"
	"marksheet/internal/service/excel"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the aggregated marks as XLSX or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "xlsx" && format != "csv" {
				return fmt.Errorf("unsupported format %q", format)
			}
			if output == "" {
				output = excel.FileBaseName + "." + format
			}
			return ctx.withApp(func(a *app.App) error {
				agg := a.Results.Snapshot()
				if agg.Count() == 0 {
					return errors.New("nothing to export")
				}
				exporter := excel.NewExporter()
				var (
					data []byte
					err  error
				)
				if format == "csv" {
					data, err = exporter.ExportCSV(agg)
				} else {
					data, err = exporter.ExportXLSX(agg)
				}
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				if err := a.Store.CreateExportLog(format, agg.Count(), len(agg.Questions)); err != nil {
					a.Logger.Warn("record export log failed", zap.Error(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d sheets to %s\n", agg.Count(), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "xlsx", "Output format (xlsx|csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	return cmd
}
