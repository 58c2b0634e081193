package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marksheet/internal/app"
	"marksheet/internal/model"
	"marksheet/internal/service/roster"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <roster.csv|roster.xlsx>",
		Short: "Fill a class roster with the aggregated marks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			return ctx.withApp(func(a *app.App) error {
				agg := a.Results.Snapshot()
				if agg.Count() == 0 {
					return errors.New("nothing to merge: no aggregated sheets")
				}
				result, err := roster.Merge(data, filepath.Base(path), agg, a.RosterOptions())
				if err != nil {
					return err
				}
				encoded, err := result.Encode()
				if err != nil {
					return err
				}
				target := output
				if target == "" {
					target = result.FileName(time.Now())
				}
				if err := os.WriteFile(target, encoded, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				if _, err := a.Store.CreateMergeLog(filepath.Base(path), result.Roster.Format, result.Report); err != nil {
					a.Logger.Warn("record merge log failed", zap.Error(err))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderReport(result.Report))
				fmt.Fprintf(out, "wrote %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default merged_marks_<date>.<ext>)")
	return cmd
}

func renderReport(r *model.MergeReport) string {
	rows := [][]string{
		{"Roster rows", strconv.Itoa(r.TotalRows)},
		{"Matched rows", strconv.Itoa(r.MatchedRows)},
		{"Updated rows", strconv.Itoa(r.UpdatedCount)},
		{"Unmatched", strings.Join(r.UnmatchedRows, ", ")},
	}
	for _, c := range r.Collisions {
		rows = append(rows, []string{"Collision " + c.AdmissionNo, c.Chosen + " of " + strings.Join(c.Candidates, ", ")})
	}
	for _, k := range r.UnmappedKeys {
		rows = append(rows, []string{"Unmapped " + k.Question, k.RegNo})
	}
	return renderTable([]string{"Merge", "Value"}, rows, nil)
}
