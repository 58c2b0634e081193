package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"marksheet/internal/app"
	"marksheet/internal/importer"
	"marksheet/internal/model"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var finalize bool

	cmd := &cobra.Command{
		Use:   "process <image>...",
		Short: "Run OCR on mark-sheet images and aggregate the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				out := cmd.OutOrStdout()

				images := make([]model.Image, 0, len(args))
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					images = append(images, model.Image{Name: filepath.Base(path), Data: data})
				}

				added, rejected, err := a.Worklist.Add(images...)
				for _, r := range rejected {
					fmt.Fprintf(out, "skipped %s: %s\n", r.Name, r.Reason)
				}
				if err != nil && len(added) == 0 {
					return err
				}

				events, err := a.Worklist.Process(cmd.Context())
				if err != nil {
					return err
				}
				var summary *importer.Summary
				for evt := range events {
					switch evt.Type {
					case "item_done", "item_error", "stopped":
						fmt.Fprintf(out, "[%3d%%] %s\n", evt.Percent, evt.Message)
					case "done":
						summary, _ = evt.Data.(*importer.Summary)
					}
				}
				if summary != nil {
					fmt.Fprintf(out, "recognized %d/%d (failed %d) in %s\n",
						summary.Succeeded, summary.Total, summary.Failed, summary.Duration.Round(time.Millisecond))
				}

				if !finalize {
					fmt.Fprintf(out, "review pending: %v\n", a.Review.Pending())
					return nil
				}
				return finalizeAll(cmd, a)
			})
		},
	}

	cmd.Flags().BoolVar(&finalize, "finalize", true, "Aggregate every recognized sheet without manual review")
	return cmd
}

// finalizeAll 逐张定稿，直到没有待复核的答题卡
func finalizeAll(cmd *cobra.Command, a *app.App) error {
	out := cmd.OutOrStdout()
	for {
		cur, ok := a.Review.Current()
		if !ok {
			break
		}
		agg, err := a.Review.Finalize()
		if errors.Is(err, importer.ErrNoReviewSheet) {
			break
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "aggregated %s (%d sheets total)\n", cur.RegNo, agg.Count())
	}
	return nil
}
