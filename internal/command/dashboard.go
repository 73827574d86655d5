package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errAdminOnly = errors.New("the dashboard is only available to admins")

// NewDashboardCmd creates the admin dashboard command.
func NewDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show server-wide thread and user counts (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if !creds.User.IsAdmin {
				return writeCommandError(cmd, errAdminOnly)
			}

			stats, err := ctx.API.AdminDashboard(cmd.Context(), creds.User.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, stats)
			}
			fmt.Fprintf(out, "%sThreads%s  %s\n", bold, reset, humanize.Comma(int64(stats.TotalThreads)))
			fmt.Fprintf(out, "%sUsers%s    %s (%s active)\n", bold, reset,
				humanize.Comma(int64(stats.TotalUsers)), humanize.Comma(int64(stats.ActiveUsers)))
			if len(stats.Threads) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			now := time.Now()
			for _, t := range stats.Threads {
				fmt.Fprintln(out, FormatThread(t, creds.User.ID, now))
			}
			return nil
		},
	}
}
