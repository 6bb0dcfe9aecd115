// Package pathutil confines file paths supplied by users and agents to known
// directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kalden/ppsim/internal/constants"
)

// ErrOutsideAllowed is returned when a path resolves outside every allowed
// directory.
var ErrOutsideAllowed = errors.New("outside allowed directories")

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// For example, "/home/user/.ppsim/archives/run.ppsim.gz" becomes ".../archives/run.ppsim.gz".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ValidatePath checks that path, once cleaned and with symlinks in its
// directory resolved, lies within one of allowedDirs. The file itself need
// not exist.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return fmt.Errorf("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	dir, err := resolveExisting(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(absPath))

	for _, allowed := range allowedDirs {
		root, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		if root, err = resolveExisting(root); err != nil {
			continue
		}
		if within(target, root) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is %w", RedactPath(absPath), ErrOutsideAllowed)
}

// ValidateArchivePath checks an archive destination against ArchiveDirs for
// resultsDir plus any extra directories.
func ValidateArchivePath(path, resultsDir string, extraDirs ...string) error {
	dirs, err := ArchiveDirs(resultsDir)
	if err != nil {
		return err
	}
	return ValidatePath(path, append(dirs, extraDirs...))
}

// ArchiveDirs returns the directories where run archives may be written or
// read: ~/.ppsim/archives/ and, when resultsDir is set, <resultsDir>/archives/.
func ArchiveDirs(resultsDir string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{filepath.Join(homeDir, constants.GlobalDirName, constants.ArchivesDirName)}
	if resultsDir != "" {
		dirs = append(dirs, filepath.Join(resultsDir, constants.ArchivesDirName))
	}
	return dirs, nil
}

// resolveExisting resolves symlinks on the deepest existing ancestor of dir
// and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	var missing []string
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			slices.Reverse(missing)
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
		}
		missing = append(missing, filepath.Base(dir))
		dir = parent
	}
}

// within reports whether path is base or lies below it.
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
