// Package config resolves file locations and loads settings that need more
// than a single viper lookup.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the configuration and data directories.
const AppName = "bills"

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return os.ExpandEnv(path)
}

// ConfigDir returns $HOME/.config/bills.
func ConfigDir() string {
	return ExpandPath(filepath.Join("~", ".config", AppName))
}

// DataDir returns $HOME/.local/share/bills.
func DataDir() string {
	return ExpandPath(filepath.Join("~", ".local", "share", AppName))
}

// DefaultDatabasePath is where records live unless database.path says otherwise.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), AppName+".db")
}

// DefaultTokenPath is where `bills auth sheets` stores the OAuth2 token.
func DefaultTokenPath() string {
	return filepath.Join(ConfigDir(), "sheets-token.json")
}
