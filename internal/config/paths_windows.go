//go:build windows

package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns %APPDATA%\MathBlast, or ~\MathBlast when APPDATA
// is unset.
func DefaultDataDir() string {
	base := os.Getenv("APPDATA")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "MathBlast"
		}
		base = home
	}
	return filepath.Join(base, "MathBlast")
}

func configFilePath() string {
	return filepath.Join(DefaultDataDir(), "config.json")
}
