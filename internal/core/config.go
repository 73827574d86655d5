package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	configFileName = "config.json"
	defaultAPIURL  = "http://localhost:5050"
)

// Config holds client settings. Precedence is flags, then environment, then
// the config file, then defaults.
type Config struct {
	APIURL        string `json:"api_url,omitempty"`
	WSURL         string `json:"ws_url,omitempty"`
	StateURL      string `json:"state_url,omitempty"`
	DesktopNotify bool   `json:"desktop_notify,omitempty"`
}

// ConfigDir returns the directory holding config, credentials and state.
func ConfigDir() (string, error) {
	if dir := os.Getenv("HUDDLE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "huddle"), nil
}

// readConfigFile decodes config.json in dir. A missing file yields the zero
// config.
func readConfigFile(dir string) (Config, error) {
	var config Config
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("decode %s: %w", configFileName, err)
	}
	return config, nil
}

// LoadConfig resolves the effective config from .env, the environment and
// the config file in dir.
func LoadConfig(dir string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config, err := readConfigFile(dir)
	if err != nil {
		return config, err
	}

	if v := os.Getenv("HUDDLE_API_URL"); v != "" {
		config.APIURL = v
	}
	if v := os.Getenv("HUDDLE_WS_URL"); v != "" {
		config.WSURL = v
	}
	if v := os.Getenv("HUDDLE_STATE_URL"); v != "" {
		config.StateURL = v
	}
	if v := os.Getenv("HUDDLE_DESKTOP_NOTIFY"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			config.DesktopNotify = parsed
		}
	}

	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.WSURL == "" {
		config.WSURL = DeriveWSURL(config.APIURL)
	}
	return config, nil
}

// DeriveWSURL maps an http(s) API URL to its websocket endpoint.
func DeriveWSURL(apiURL string) string {
	value := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(value, "https://"):
		value = "wss://" + strings.TrimPrefix(value, "https://")
	case strings.HasPrefix(value, "http://"):
		value = "ws://" + strings.TrimPrefix(value, "http://")
	}
	return value + "/ws"
}
