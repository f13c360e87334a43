package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TokenKey is the single key the CLI token file holds.
const TokenKey = "auth_token"

// ErrNoToken is returned when no token has been stored.
var ErrNoToken = errors.New("no stored token")

// TokenFileStore persists the upstream bearer token for portalctl in a 0600 JSON file.
type TokenFileStore struct {
	path string
}

// NewTokenFileStore returns a store at path, or at ~/.config/portalctl/token.json when path is empty.
func NewTokenFileStore(path string) (*TokenFileStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "portalctl", "token.json")
	}
	return &TokenFileStore{path: path}, nil
}

// Path returns the token file location.
func (s *TokenFileStore) Path() string {
	return s.path
}

// Load reads the stored token.
func (s *TokenFileStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	token := payload[TokenKey]
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes the token, creating parent directories as needed.
func (s *TokenFileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	payload, err := json.Marshal(map[string]string{TokenKey: token})
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}

// Clear removes the token file. A missing file is not an error.
func (s *TokenFileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
