package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tosho/internal/config"
	"tosho/internal/state"
	"tosho/internal/store"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and edit the control state keys",
	}
	stateCmd.AddCommand(newStateGetCommand(ctx))
	stateCmd.AddCommand(newStateSetCommand(ctx))
	return stateCmd
}

func newStateGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one or all state keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					value, err := s.GetRawState(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(out, value)
					return nil
				}

				all, err := s.AllState(cmd.Context())
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(all))
				for key := range all {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, key := range keys {
					rows = append(rows, []string{key, all[key]})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"KEY", "VALUE"}, rows,
					[]columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}
}

func newStateSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Overwrite one state key with a JSON value",
		Long: "Writes a state key directly. Lowering max_feed_id forces " +
			"re-ingestion of the gap; rewinding a sync timestamp forces a " +
			"refresh. A running daemon notices the edit on its next cycle.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				key, value := args[0], args[1]
				old, err := s.GetRawState(cmd.Context(), key)
				if err != nil {
					return err
				}
				if err := s.SetRawState(cmd.Context(), key, value); err != nil {
					return err
				}
				interesting, err := state.Interesting(key, old, value)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s -> %s\n", key, old, value)
				if interesting {
					fmt.Fprintln(out, "a running daemon will act on this within one poll interval")
				}
				return nil
			})
		},
	}
}
