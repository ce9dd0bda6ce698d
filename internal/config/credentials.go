// Package config owns the local credential file and the behavioral
// settings struct. The credential file keeps the bash-sourceable format of
// earlier Push releases so existing installs keep working.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/masslessai/push-cli/internal/api"
)

const (
	// EnvAPIKey overrides the credential file. Kept for CI and tests.
	EnvAPIKey = "PUSH_API_KEY"

	keyLinePrefix   = "export PUSH_API_KEY="
	emailLinePrefix = "export PUSH_EMAIL="
)

// Credentials is the account link written by the connect flow.
type Credentials struct {
	APIKey string
	Email  string
}

// CredentialStore reads and writes the credential file at a fixed path.
type CredentialStore struct {
	path string
}

// NewCredentialStore uses the default path, ~/.config/push/config.
func NewCredentialStore() (*CredentialStore, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &CredentialStore{path: filepath.Join(dir, "config")}, nil
}

// NewCredentialStoreAt uses an explicit path (tests).
func NewCredentialStoreAt(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Dir returns the Push config directory, ~/.config/push.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "push"), nil
}

// Load reads credentials. The environment variable wins over the file.
// A missing file or a file with no key returns api.ErrMissingCredentials,
// distinct from read errors, so callers can trigger onboarding.
func (s *CredentialStore) Load() (Credentials, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return Credentials{APIKey: key}, nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, api.ErrMissingCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credential file: %w", err)
	}

	creds := parseCredentials(string(raw))
	if creds.APIKey == "" {
		return Credentials{}, api.ErrMissingCredentials
	}
	return creds, nil
}

// parseCredentials extracts the export lines, tolerating unknown lines and
// single or double quotes around values.
func parseCredentials(raw string) Credentials {
	var creds Credentials
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, keyLinePrefix):
			creds.APIKey = unquote(strings.TrimPrefix(line, keyLinePrefix))
		case strings.HasPrefix(line, emailLinePrefix):
			creds.Email = unquote(strings.TrimPrefix(line, emailLinePrefix))
		}
	}
	return creds
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"`)
	return strings.Trim(v, `'`)
}

// Save writes the credential file with 0600 permissions, creating the
// config directory if needed.
func (s *CredentialStore) Save(creds Credentials) error {
	if creds.APIKey == "" {
		return fmt.Errorf("refusing to save empty API key")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%q\n", keyLinePrefix, creds.APIKey)
	if creds.Email != "" {
		fmt.Fprintf(&b, "%s%q\n", emailLinePrefix, creds.Email)
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

// Clear removes the credential file. Missing file is not an error.
func (s *CredentialStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

// Path returns the credential file location, for status display.
func (s *CredentialStore) Path() string {
	return s.path
}
