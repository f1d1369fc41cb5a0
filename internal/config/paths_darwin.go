//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "MathBlast")
	}
	return "mathblast-data"
}

func configFilePath() string {
	return filepath.Join(DefaultDataDir(), "config.json")
}
