package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tosho/internal/config"
	"tosho/internal/store"
)

func newShowsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shows",
		Short: "List the catalog shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				shows, err := s.AllShowsWithNames(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(shows))
				for _, show := range shows {
					var primary string
					aliases := 0
					for _, name := range show.Names {
						switch name.Kind {
						case store.NamePrimary:
							primary = name.Name
						case store.NameAdditional:
							aliases++
						}
					}
					season := ""
					if show.Show.Season != nil {
						season = show.Show.Season.String()
					}
					rows = append(rows, []string{
						strconv.FormatInt(show.Show.ID, 10),
						strconv.FormatInt(show.Show.CatalogID, 10),
						primary,
						show.Show.Format.String(),
						season,
						strconv.Itoa(aliases),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "CATALOG", "TITLE", "FORMAT", "SEASON", "ALIASES"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
				fmt.Fprintf(out, "%d shows\n", len(rows))
				return nil
			})
		},
	}
}

func newAliasCommand(ctx *commandContext) *cobra.Command {
	aliasCmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage curated aliases",
	}

	addCmd := &cobra.Command{
		Use:   "add <catalog-id> <name>",
		Short: "Add a curated alias for a show",
		Long: "Curated aliases fix matching gaps: the matcher prefers them " +
			"over catalog names when several shows match a title. Run " +
			"`tosho rematch` afterwards to apply the new alias to the backlog.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("catalog id %q is not a number", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				if err := s.AddShowName(cmd.Context(), catalogID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "alias %q added to show %d\n", args[1], catalogID)
				return nil
			})
		},
	}
	aliasCmd.AddCommand(addCmd)
	return aliasCmd
}
