package command

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const AppName = "huddle"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Huddle - join short-lived group threads from the terminal",
		Long:          "Huddle is a terminal client for time-boxed group threads: browse, join, and chat in real time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("api-url", "", "server URL (overrides HUDDLE_API_URL and config)")
	cmd.PersistentFlags().String("config-dir", "", "config directory (default ~/.config/huddle)")

	deleteCmd := NewDeleteCmd()
	deleteCmd.Flags().Bool("force", false, "skip the confirmation prompt")

	cmd.AddCommand(
		NewLoginCmd(),
		NewRegisterCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
		NewThreadsCmd(),
		NewCreateCmd(),
		NewEditCmd(),
		deleteCmd,
		NewJoinCmd(),
		NewApproveCmd(),
		NewRejectCmd(),
		NewRequestsCmd(),
		NewSendCmd(),
		NewDashboardCmd(),
		NewStateCmd(),
		NewWatchCmd(),
	)

	return cmd
}

func Execute() error {
	os.Args = rewriteThreadArgs(os.Args)
	return NewRootCmd(Version).Execute()
}

// rewriteThreadArgs rewrites "huddle #<id>" to "huddle watch <id>".
func rewriteThreadArgs(args []string) []string {
	if len(args) < 2 {
		return args
	}
	idx := findFirstNonFlagArg(args[1:])
	if idx == -1 {
		return args
	}
	fullIdx := idx + 1
	if fullIdx >= len(args) {
		return args
	}
	arg := args[fullIdx]
	if !strings.HasPrefix(arg, "#") || len(arg) == 1 {
		return args
	}
	updated := make([]string, 0, len(args)+1)
	updated = append(updated, args[:fullIdx]...)
	updated = append(updated, "watch", strings.TrimPrefix(arg, "#"))
	updated = append(updated, args[fullIdx+1:]...)
	return updated
}

func findFirstNonFlagArg(args []string) int {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return i + 1
			}
			return -1
		}
		if strings.HasPrefix(arg, "--") {
			if strings.Contains(arg, "=") {
				continue
			}
			if arg == "--api-url" || arg == "--config-dir" {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		return i
	}
	return -1
}
