package command

import (
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/logging"
)

var (
	// ErrNotLoggedIn is returned by commands that need stored credentials.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrTokenExpired is returned when the stored token is past its expiry.
	ErrTokenExpired = errors.New("stored session has expired")
)

// CommandContext provides shared command resources.
type CommandContext struct {
	ConfigDir string
	Config    core.Config
	Creds     *core.Credentials
	API       *api.Client
	JSONMode  bool
	Logger    *slog.Logger
}

// GetContext resolves config, credentials and the API client for a command.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")
	debug, _ := cmd.Flags().GetBool("debug")
	apiURL, _ := cmd.Flags().GetString("api-url")
	dir, _ := cmd.Flags().GetString("config-dir")

	level := logging.LevelFromEnv(slog.LevelWarn)
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	if dir == "" {
		var err error
		dir, err = core.ConfigDir()
		if err != nil {
			return nil, err
		}
	}
	config, err := core.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	creds, err := core.LoadCredentials(dir)
	if err != nil {
		return nil, err
	}

	// a login against another server stays bound to it
	if creds != nil && creds.APIURL != "" && apiURL == "" {
		config.APIURL = creds.APIURL
		config.WSURL = core.DeriveWSURL(creds.APIURL)
	}
	if apiURL != "" {
		config.APIURL = apiURL
		config.WSURL = core.DeriveWSURL(apiURL)
	}

	token := ""
	if creds != nil {
		token = creds.Token
	}
	client, err := api.NewClient(config.APIURL, token)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		ConfigDir: dir,
		Config:    config,
		Creds:     creds,
		API:       client,
		JSONMode:  jsonMode,
		Logger:    logger,
	}, nil
}

// RequireUser returns the signed-in user or an error telling the caller to
// log in.
func (c *CommandContext) RequireUser() (*core.Credentials, error) {
	if c.Creds == nil {
		return nil, ErrNotLoggedIn
	}
	if api.TokenExpired(c.Creds.Token, time.Now()) {
		return nil, ErrTokenExpired
	}
	return c.Creds, nil
}
