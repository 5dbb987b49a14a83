package config

import (
	"os"
	"path/filepath"
)

// DataDir is where mudra keeps its database and helper scripts.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// DefaultStorePath is the sqlite file inside DataDir.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "mudra.db")
}
