package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tosho/internal/anilist"
	"tosho/internal/config"
	"tosho/internal/ingest"
	"tosho/internal/nyaa"
	"tosho/internal/state"
	"tosho/internal/store"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion cycle and exit",
		Long: "Polls the feed, refreshes the catalog and schedule if due, and " +
			"classifies new torrents. Useful for cron-style setups without a " +
			"resident daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				logger := ctx.cliLogger()
				tracker, err := state.NewTracker(cmd.Context(), s, logger)
				if err != nil {
					return err
				}
				manager := ingest.NewManager(cfg, s, tracker,
					nyaa.New(cfg, logger),
					anilist.New(cfg, logger),
					logger)
				manager.Cycle(cmd.Context())

				maxID, err := s.MaxFeedID(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cycle complete, watermark at %d\n", maxID)
				return nil
			})
		},
	}
}

func newRematchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rematch",
		Short: "Request re-classification of unmatched torrents",
		Long: "Bumps the rematch counter. A running daemon picks the request " +
			"up on its next cycle; without a daemon, the next `tosho ingest` " +
			"run handles it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				tracker, err := state.NewTracker(cmd.Context(), s, ctx.cliLogger())
				if err != nil {
					return err
				}
				counter, err := tracker.RequestRematch(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rematch requested (counter %d)\n", counter)
				return nil
			})
		},
	}
}
