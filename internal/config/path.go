// Package config resolves user-supplied paths and application defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ against the user's home directory and
// expands $VAR environment references.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return os.ExpandEnv(path)
}

// DefaultDataPath returns the default database location, honoring
// $XDG_DATA_HOME before falling back to ~/.local/share.
func DefaultDataPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tally", "tally.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "tally.db")
	}
	return filepath.Join(home, ".local", "share", "tally", "tally.db")
}
