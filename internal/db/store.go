package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrUnsupportedStore is returned by Open for URLs with an unknown scheme.
var ErrUnsupportedStore = errors.New("unsupported state store")

// StateStore is a small key-value store for client state that survives
// restarts.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// StatePath returns the default SQLite location inside the config dir.
func StatePath(configDir string) string {
	return filepath.Join(configDir, "state.db")
}

// Open selects a backend from stateURL. An empty URL uses SQLite in
// configDir; redis:// and rediss:// use Redis; sqlite:// or a bare path use
// SQLite at that path.
func Open(ctx context.Context, stateURL, configDir string) (StateStore, error) {
	raw := strings.TrimSpace(stateURL)
	if raw == "" {
		return OpenSQLite(StatePath(configDir))
	}
	if !strings.Contains(raw, "://") {
		return OpenSQLite(raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse state url: %w", err)
	}
	switch parsed.Scheme {
	case "redis", "rediss":
		return NewRedisStore(ctx, raw)
	case "sqlite", "file":
		path := parsed.Opaque
		if path == "" {
			path = parsed.Host + parsed.Path
		}
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, parsed.Scheme)
}
