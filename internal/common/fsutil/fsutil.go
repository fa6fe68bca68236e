package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// RegularFile reports whether path resolves to a regular file (symlinks followed).
func RegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// GlobFiles returns the regular files in dir matching pattern, sorted by name.
// dir may start with '~'.
func GlobFiles(dir, pattern string) ([]string, error) {
	base, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(base, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	out := matches[:0]
	for _, m := range matches {
		if RegularFile(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
