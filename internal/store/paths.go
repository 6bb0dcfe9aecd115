package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kalden/ppsim/internal/constants"
)

// GlobalPath returns the per-user ppsim directory.
// On Unix: ~/.ppsim
// On Windows: %USERPROFILE%\.ppsim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.GlobalDirName), nil
}

// EnsureGlobalDir creates the per-user ppsim directory if it doesn't exist
// and returns its path.
func EnsureGlobalDir() (string, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create global .ppsim directory: %w", err)
	}

	return globalPath, nil
}

// Open returns the SQLite store at dbPath, or an in-memory store when dbPath
// is empty.
func Open(dbPath string) (ResultStore, error) {
	if dbPath == "" {
		return NewInMemoryResultStore(), nil
	}
	return NewSQLiteResultStore(dbPath)
}
