package config

import (
	"os"
	"path/filepath"
	"strings"
)

const dirEnvOverride = "WSTERM_CONFIG_DIR"

// Dir returns the config directory, creating nothing. WSTERM_CONFIG_DIR wins
// over the platform default so tests and portable setups can relocate state.
func Dir() string {
	if override := strings.TrimSpace(os.Getenv(dirEnvOverride)); override != "" {
		return override
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return ".wsterm"
		}
		return filepath.Join(home, ".wsterm")
	}
	return filepath.Join(base, "wsterm")
}

func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}

func CookiePath() string {
	return filepath.Join(Dir(), "cookies.db")
}
