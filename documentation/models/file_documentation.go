package models

import "time"

// FileDocumentation is the generated summary of one source file.
type FileDocumentation struct {
	Path         string    `json:"path"`
	Summary      string    `json:"summary"`
	Preview      string    `json:"preview"`
	Type         string    `json:"type"`
	ContentHash  string    `json:"contentHash,omitempty"`
	LastModified time.Time `json:"lastModified"`
	LastUpdated  time.Time `json:"lastUpdated"`

	// Content is the raw file text. It never leaves memory.
	Content string `json:"-"`
}

// ProjectDocumentation is the persisted documentation for a workspace.
type ProjectDocumentation struct {
	Version     string                       `json:"version"`
	LastUpdated time.Time                    `json:"lastUpdated"`
	Files       map[string]FileDocumentation `json:"files"`
}

// NewProjectDocumentation returns an empty document set.
func NewProjectDocumentation(version string) *ProjectDocumentation {
	return &ProjectDocumentation{
		Version: version,
		Files:   make(map[string]FileDocumentation),
	}
}
