package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/session"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", api.MessageOf(err))

	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", hint)
	}

	return err
}

func errorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotLoggedIn),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrSignedOut):
		return "run `huddle login` to sign in again"
	case errors.Is(err, core.ErrMissingField):
		return "title, description and location are required"
	case isSchemaError(err):
		return "the local state database looks corrupt. Try: huddle state clear"
	}
	return ""
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}
