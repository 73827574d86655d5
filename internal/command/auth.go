package command

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/db"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, args[0], false)
		},
	}
	cmd.Flags().String("password", "", "password (read from stdin when omitted)")
	cmd.Flags().Bool("admin", false, "sign in as an admin")
	return cmd
}

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, args[0], true)
		},
	}
	cmd.Flags().String("password", "", "password (read from stdin when omitted)")
	return cmd
}

func runAuth(cmd *cobra.Command, username string, register bool) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
		if err != nil {
			return writeCommandError(cmd, err)
		}
	}

	var result api.AuthResult
	if register {
		result, err = ctx.API.Register(cmd.Context(), username, password)
	} else {
		admin, _ := cmd.Flags().GetBool("admin")
		result, err = ctx.API.Login(cmd.Context(), username, password, admin)
	}
	if err != nil {
		return writeCommandError(cmd, err)
	}

	creds := core.Credentials{
		Token:   result.Token,
		User:    result.User,
		APIURL:  ctx.Config.APIURL,
		SavedAt: time.Now().Unix(),
	}
	if err := core.SaveCredentials(ctx.ConfigDir, creds); err != nil {
		return writeCommandError(cmd, err)
	}

	out := cmd.OutOrStdout()
	if ctx.JSONMode {
		return writeJSON(out, result.User)
	}
	verb := "Logged in"
	if register {
		verb = "Registered"
	}
	fmt.Fprintf(out, "%s as %s\n", verb, result.User.Username)
	return nil
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials and client state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := core.ClearCredentials(ctx.ConfigDir); err != nil {
				return writeCommandError(cmd, err)
			}

			store, err := db.Open(cmd.Context(), ctx.Config.StateURL, ctx.ConfigDir)
			if err != nil {
				ctx.Logger.Warn("open state store failed", "err", err)
			} else {
				if err := db.ClearSession(cmd.Context(), store); err != nil {
					ctx.Logger.Warn("clear state failed", "err", err)
				}
				_ = store.Close()
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"logged_out": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.Creds == nil {
				return writeCommandError(cmd, ErrNotLoggedIn)
			}

			expiry, expErr := api.TokenExpiry(ctx.Creds.Token)
			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				payload := map[string]any{
					"user":    ctx.Creds.User,
					"api_url": ctx.Config.APIURL,
				}
				if expErr == nil {
					payload["expires_at"] = expiry.UTC().Format(time.RFC3339)
				}
				return writeJSON(out, payload)
			}

			role := ""
			if ctx.Creds.User.IsAdmin {
				role = " (admin)"
			}
			fmt.Fprintf(out, "%s%s [%s] on %s\n", ctx.Creds.User.Username, role, ctx.Creds.User.ID, ctx.Config.APIURL)
			if expErr == nil {
				fmt.Fprintf(out, "  session expires %s\n", humanize.Time(expiry))
			}
			return nil
		},
	}
}
