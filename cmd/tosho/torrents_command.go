package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tosho/internal/config"
	"tosho/internal/store"
)

func newTorrentsCommand(ctx *commandContext) *cobra.Command {
	var unmatched bool
	var showID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "torrents",
		Short: "List ingested torrents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if unmatched && showID != 0 {
				return fmt.Errorf("--unmatched and --show are mutually exclusive")
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				var torrents []store.Torrent
				var err error
				switch {
				case unmatched:
					torrents, err = s.UnmatchedTorrents(cmd.Context())
				case showID != 0:
					torrents, err = s.TorrentsByShow(cmd.Context(), showID)
				default:
					torrents, err = s.RecentTorrents(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(torrents))
				for _, t := range torrents {
					rows = append(rows, []string{
						strconv.FormatInt(t.FeedID, 10),
						t.Title,
						formatSize(t.Size),
						t.UploadedAt.UTC().Format(time.RFC3339),
						yesNo(t.Trusted),
						yesNo(t.Matched),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"FEED ID", "TITLE", "SIZE", "UPLOADED", "TRUSTED", "MATCHED"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}))
				fmt.Fprintf(out, "%d torrents\n", len(rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&unmatched, "unmatched", false, "Only torrents without a show relation")
	cmd.Flags().Int64Var(&showID, "show", 0, "Only torrents related to the given show id")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows for the default newest-first listing")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGT"[exp])
}
