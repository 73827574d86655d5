package db

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/adamavenir/huddle/internal/types"
)

// Keys of the persisted session.
const (
	KeyUser           = "user"
	KeySelectedThread = "selected_thread"
	KeyActiveTab      = "active_tab"
)

// Session is the restorable part of the client state.
type Session struct {
	User *types.User   `json:"user"`
	Open *types.Thread `json:"open_thread"`
	Tab  types.Tab     `json:"tab"`
}

// LoadSession reads the persisted session. Entries that fail to parse or
// validate are deleted and skipped; only store errors are returned.
func LoadSession(ctx context.Context, store StateStore, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var session Session

	var user types.User
	ok, err := loadEntry(ctx, store, logger, KeyUser, &user, func() bool { return user.ID != "" })
	if err != nil {
		return Session{}, err
	}
	if ok {
		session.User = &user
	}

	var thread types.Thread
	ok, err = loadEntry(ctx, store, logger, KeySelectedThread, &thread, func() bool { return thread.ID != "" })
	if err != nil {
		return Session{}, err
	}
	if ok {
		session.Open = &thread
	}

	var tab types.Tab
	ok, err = loadEntry(ctx, store, logger, KeyActiveTab, &tab, func() bool { return tab.Valid() })
	if err != nil {
		return Session{}, err
	}
	if ok {
		session.Tab = tab
	}
	return session, nil
}

func loadEntry(ctx context.Context, store StateStore, logger *slog.Logger, key string, out any, valid func() bool) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil || !valid() {
		logger.Debug("dropping corrupt state entry", "key", key, "err", err)
		return false, store.Delete(ctx, key)
	}
	return true, nil
}

// SaveSession writes the session. Nil or empty parts are deleted so a
// restore never resurrects them.
func SaveSession(ctx context.Context, store StateStore, session Session) error {
	if err := saveEntry(ctx, store, KeyUser, session.User, session.User != nil); err != nil {
		return err
	}
	if err := saveEntry(ctx, store, KeySelectedThread, session.Open, session.Open != nil); err != nil {
		return err
	}
	return saveEntry(ctx, store, KeyActiveTab, session.Tab, session.Tab.Valid())
}

func saveEntry(ctx context.Context, store StateStore, key string, value any, present bool) error {
	if !present {
		return store.Delete(ctx, key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, string(data))
}

// ClearSession removes every persisted entry.
func ClearSession(ctx context.Context, store StateStore) error {
	for _, key := range []string{KeyUser, KeySelectedThread, KeyActiveTab} {
		if err := store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
