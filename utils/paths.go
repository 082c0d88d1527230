package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the workspace root.
var ErrOutsideRoot = errors.New("path is outside the workspace root")

// NormalizePath converts path into the canonical workspace form:
// forward slashes, relative to root, no leading "./".
// Relative inputs are taken as already relative to root.
// The root itself normalizes to the empty string.
func NormalizePath(root string, path string) (string, error) {
	rel := path
	if filepath.IsAbs(path) {
		var err error
		rel, err = filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("failed to relativize %s: %w", path, err)
		}
	}

	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))

	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return strings.TrimPrefix(rel, "./"), nil
}

// AbsolutePath resolves a normalized relative path against root.
func AbsolutePath(root string, relPath string) string {
	return filepath.Join(root, filepath.FromSlash(relPath))
}

// JoinRelative joins a normalized directory path and an entry name.
func JoinRelative(dir string, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// WriteFileAtomic writes data to a temp file in the target directory and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
