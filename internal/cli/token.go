package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// TokenFile persists the login token between invocations.
type TokenFile struct {
	Path string
}

// DefaultTokenPath is $HOME/.tollctl_token.
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tollctl_token"
	}
	return filepath.Join(home, ".tollctl_token")
}

// Load returns the stored token, or "" when none is stored.
func (t TokenFile) Load() (string, error) {
	b, err := os.ReadFile(t.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read token file")
	}
	return strings.TrimSpace(string(b)), nil
}

// Save writes token readable by the owner only.
func (t TokenFile) Save(token string) error {
	return errors.Wrap(os.WriteFile(t.Path, []byte(token+"\n"), 0o600), "write token file")
}

// Remove deletes the stored token.  A missing file is not an error.
func (t TokenFile) Remove() error {
	if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove token file")
	}
	return nil
}
