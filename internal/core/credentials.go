package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adamavenir/huddle/internal/types"
)

const credentialsFileName = "credentials.json"

// Credentials stores the signed-in user and bearer token.
type Credentials struct {
	Token   string     `json:"token"`
	User    types.User `json:"user"`
	APIURL  string     `json:"api_url,omitempty"`
	SavedAt int64      `json:"saved_at,omitempty"`
}

// CredentialsPath returns the credentials file location in dir.
func CredentialsPath(dir string) string {
	return filepath.Join(dir, credentialsFileName)
}

// LoadCredentials reads credentials if present. A file without a user id
// counts as signed out.
func LoadCredentials(dir string) (*Credentials, error) {
	data, err := os.ReadFile(CredentialsPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if creds.User.ID == "" {
		return nil, nil
	}
	return &creds, nil
}

// SaveCredentials replaces the credentials file. The token is private, so the
// file and its directory are owner-only. Watchers see a single rename rather
// than a partial write.
func SaveCredentials(dir string, creds Credentials) error {
	if creds.User.ID == "" {
		return errors.New("credentials need a user id")
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, credentialsFileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), CredentialsPath(dir))
}

// ClearCredentials removes stored credentials. Missing files are fine.
func ClearCredentials(dir string) error {
	err := os.Remove(CredentialsPath(dir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
