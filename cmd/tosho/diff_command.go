package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tosho/internal/config"
	"tosho/internal/diff"
	"tosho/internal/nyaa"
	"tosho/internal/store"
)

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var from, to int64

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Reconcile a feed id range against upstream",
		Long: "Re-fetches upstream records with feed ids in (from, to] and " +
			"reports ids missing locally and stored hashes that disagree. " +
			"Read-only; to repair, lower the max_feed_id state key and let " +
			"ingestion re-fetch the range.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				if to == 0 {
					maxID, err := s.MaxFeedID(cmd.Context())
					if err != nil {
						return err
					}
					to = maxID
				}
				if to <= from {
					return fmt.Errorf("empty range: from=%d to=%d", from, to)
				}

				logger := ctx.cliLogger()
				runner := diff.NewRunner(cfg, s, nyaa.New(cfg, logger), logger)
				report, err := runner.Run(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				report.Render(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&from, "from", 0, "Exclusive lower feed id bound")
	cmd.Flags().Int64Var(&to, "to", 0, "Inclusive upper feed id bound (default: current watermark)")
	return cmd
}
