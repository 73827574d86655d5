package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/session"
	"github.com/adamavenir/huddle/internal/types"
)

// NewThreadsCmd creates the threads listing command.
func NewThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List active threads",
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

			mine, _ := cmd.Flags().GetBool("mine")
			pattern, _ := cmd.Flags().GetString("match")
			term, _ := cmd.Flags().GetString("search")

			var matcher *core.ThreadMatcher
			if pattern != "" {
				matcher, err = core.CompileThreadMatcher(pattern)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			threads, err := ctx.API.ListThreads(cmd.Context(), creds.User.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			uid := creds.User.ID
			threads = core.FilterThreads(threads, func(t types.Thread) bool {
				if mine && t.CreatedBy != uid {
					return false
				}
				if matcher != nil && !matcher.Match(t) {
					return false
				}
				return core.SearchTerm(t, term)
			})

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, threads)
			}
			if len(threads) == 0 {
				fmt.Fprintln(out, "No threads")
				return nil
			}
			now := time.Now()
			for _, t := range threads {
				fmt.Fprintln(out, FormatThread(t, uid, now))
			}
			return nil
		},
	}
	cmd.Flags().Bool("mine", false, "only threads you created")
	cmd.Flags().String("match", "", "glob over titles and tags (e.g. 'lunch*')")
	cmd.Flags().String("search", "", "substring of title, description or creator")
	return cmd
}

// NewCreateCmd creates the create command.
func NewCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			description, _ := cmd.Flags().GetString("description")
			location, _ := cmd.Flags().GetString("location")
			tags, _ := cmd.Flags().GetString("tags")
			durationFlag, _ := cmd.Flags().GetString("duration")
			open, _ := cmd.Flags().GetBool("open")

			input := types.NewThreadInput{
				Title:            args[0],
				Description:      description,
				Location:         location,
				Tags:             core.ParseTags(tags),
				RequiresApproval: !open,
			}
			if durationFlag != "" {
				input.Duration, err = parseDuration(durationFlag)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}
			input, err = core.ValidateNewThread(input)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			thread, err := ctx.API.CreateThread(cmd.Context(), api.NewCreateThreadRequest(input, creds.User, time.Now()))
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, thread)
			}
			fmt.Fprintf(out, "Created thread %s\n", FormatThread(thread, creds.User.ID, time.Now()))
			return nil
		},
	}
	cmd.Flags().String("description", "", "what the thread is about")
	cmd.Flags().String("location", "", "where it happens")
	cmd.Flags().String("tags", "", "comma or space separated tags")
	cmd.Flags().String("duration", "", "lifetime (30m, 2h, 1d)")
	cmd.Flags().Bool("open", false, "let anyone join without approval")
	return cmd
}

// NewEditCmd creates the edit command.
func NewEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <thread-id>",
		Short: "Update a thread you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			fields := map[string]any{}
			for _, name := range []string{"title", "description", "location"} {
				if cmd.Flags().Changed(name) {
					value, _ := cmd.Flags().GetString(name)
					fields[name] = value
				}
			}
			if cmd.Flags().Changed("tags") {
				tags, _ := cmd.Flags().GetString("tags")
				fields["tags"] = core.ParseTags(tags)
			}
			if cmd.Flags().Changed("approval") {
				approval, _ := cmd.Flags().GetBool("approval")
				fields["requiresApproval"] = approval
			}
			if len(fields) == 0 {
				return writeCommandError(cmd, fmt.Errorf("nothing to update"))
			}

			thread, err := ctx.API.UpdateThread(cmd.Context(), args[0], fields)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, thread)
			}
			fmt.Fprintf(out, "Updated %s\n", FormatThread(thread, creds.User.ID, time.Now()))
			return nil
		},
	}
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().String("location", "", "new location")
	cmd.Flags().String("tags", "", "replace tags")
	cmd.Flags().Bool("approval", true, "require approval to join")
	return cmd
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread (asks for confirmation unless --force)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			force, _ := cmd.Flags().GetBool("force")

			if !force {
				thread := types.Thread{ID: args[0]}
				if threads, err := ctx.API.ListThreads(cmd.Context(), creds.User.ID); err == nil {
					for _, t := range threads {
						if t.ID == args[0] {
							thread = t
						}
					}
				}
				prompt := session.DeletePromptFor(thread, creds.User)
				if !confirmPrompt(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt.Title, prompt.Message) {
					return writeCommandError(cmd, session.ErrNotConfirmed)
				}
			}

			result, err := ctx.API.DeleteThread(cmd.Context(), args[0], creds.User.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, map[string]string{"deleted": args[0], "deleted_by": result.DeletedBy})
			}
			fmt.Fprintf(out, "Deleted thread %s\n", args[0])
			return nil
		},
	}
}

// NewJoinCmd creates the join command.
func NewJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <thread-id>",
		Short: "Join a thread or ask to join it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			result, err := ctx.API.RequestJoin(cmd.Context(), args[0], creds.User.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, map[string]any{"thread": args[0], "joined": result.Joined})
			}
			if result.Joined {
				fmt.Fprintf(out, "Joined thread %s\n", args[0])
			} else {
				fmt.Fprintf(out, "Join request sent for %s\n", args[0])
			}
			return nil
		},
	}
}

// NewApproveCmd creates the approve command.
func NewApproveCmd() *cobra.Command {
	return newHandleRequestCmd("approve", true)
}

// NewRejectCmd creates the reject command.
func NewRejectCmd() *cobra.Command {
	return newHandleRequestCmd("reject", false)
}

func newHandleRequestCmd(verb string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <thread-id> <user-id>",
		Short: fmt.Sprintf("%s a pending join request", titleCase(verb)),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.API.HandleRequest(cmd.Context(), args[0], args[1], approve, creds.User.ID); err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, map[string]any{"thread": args[0], "user": args[1], "approved": approve})
			}
			fmt.Fprintf(out, "Request from %s %sd\n", args[1], verb)
			return nil
		},
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NewRequestsCmd creates the requests command.
func NewRequestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requests [thread-id]",
		Short: "List pending join requests on your threads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			threads, err := ctx.API.ListThreads(cmd.Context(), creds.User.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			type pending struct {
				ThreadID string            `json:"thread_id"`
				Request  types.JoinRequest `json:"request"`
			}
			var all []pending
			for _, t := range core.OwnedBy(threads, creds.User.ID) {
				if len(args) == 1 && t.ID != args[0] {
					continue
				}
				for _, req := range t.PendingRequests {
					all = append(all, pending{ThreadID: t.ID, Request: req})
				}
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				if all == nil {
					all = []pending{}
				}
				return writeJSON(out, all)
			}
			if len(all) == 0 {
				fmt.Fprintln(out, "No pending requests")
				return nil
			}
			for _, p := range all {
				fmt.Fprintln(out, FormatRequest(p.ThreadID, p.Request))
			}
			return nil
		},
	}
}

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <thread-id> <message>",
		Short: "Post a message to a thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds, err := ctx.RequireUser()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			text, err := validateMessage(args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			msg, err := ctx.API.SendMessage(cmd.Context(), args[0], api.SendMessageRequest{
				User:    creds.User.Username,
				UserID:  creds.User.ID,
				Message: text,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, msg)
			}
			fmt.Fprintln(out, FormatMessage(msg))
			return nil
		},
	}
}
