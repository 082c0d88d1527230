package models

import "time"

// FileRecord is the scan cache entry for a single file.
type FileRecord struct {
	ContentHash  string    `json:"file_hash"`
	LastParsedAt time.Time `json:"lastParsed"`
}

// ProjectCache is the persisted scan cache, keyed by absolute path.
type ProjectCache struct {
	Files       map[string]FileRecord `json:"files"`
	LastUpdated time.Time             `json:"lastUpdated"`
}

// NewProjectCache returns an empty cache ready for a cold start.
func NewProjectCache() *ProjectCache {
	return &ProjectCache{Files: make(map[string]FileRecord)}
}

// ChangeResult is the outcome of comparing a file against its cache entry.
type ChangeResult struct {
	Changed bool
	Hash    string
}
