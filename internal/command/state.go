package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamavenir/huddle/internal/db"
)

// NewStateCmd creates the state command group.
func NewStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear persisted client state",
	}
	cmd.AddCommand(newStateShowCmd(), newStateClearCmd())
	return cmd
}

func newStateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persisted user, open thread and tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			store, err := db.Open(cmd.Context(), ctx.Config.StateURL, ctx.ConfigDir)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer store.Close()

			persisted, err := db.LoadSession(cmd.Context(), store, ctx.Logger)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, persisted)
			}
			user, open, tab := "(none)", "(none)", "(default)"
			if persisted.User != nil {
				user = fmt.Sprintf("%s [%s]", persisted.User.Username, persisted.User.ID)
			}
			if persisted.Open != nil {
				open = fmt.Sprintf("%s [%s]", persisted.Open.Title, persisted.Open.ID)
			}
			if persisted.Tab != "" {
				tab = string(persisted.Tab)
			}
			fmt.Fprintf(out, "user:   %s\nthread: %s\ntab:    %s\n", user, open, tab)
			return nil
		},
	}
}

func newStateClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the persisted open thread and tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			store, err := db.Open(cmd.Context(), ctx.Config.StateURL, ctx.ConfigDir)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer store.Close()

			if err := db.ClearSession(cmd.Context(), store); err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"cleared": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared persisted state")
			return nil
		},
	}
}
