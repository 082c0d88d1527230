package code_analyzer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
)

// HashFile returns the hex MD5 digest of a file's full contents.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes returns the hex MD5 digest of content already in memory.
func HashBytes(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// HasChanged compares the file's current hash against its cache entry.
// A read failure reports a change with an empty hash so the file is never silently skipped.
// The cache is not modified.
func HasChanged(path string, cache *models.ProjectCache) models.ChangeResult {
	hash, err := HashFile(path)
	if err != nil {
		return models.ChangeResult{Changed: true, Hash: ""}
	}

	if cache == nil || cache.Files == nil {
		return models.ChangeResult{Changed: true, Hash: hash}
	}
	record, exists := cache.Files[path]
	if !exists || record.ContentHash != hash {
		return models.ChangeResult{Changed: true, Hash: hash}
	}
	return models.ChangeResult{Changed: false, Hash: hash}
}
