package models

// ItemKind classifies an extracted code construct.
type ItemKind string

const (
	KindClass    ItemKind = "class"
	KindMethod   ItemKind = "method"
	KindFunction ItemKind = "function"
)

// CodeItem is one structural element of a source file.
// Lines are 1-based and inclusive. Only classes carry children.
type CodeItem struct {
	Kind      ItemKind   `json:"kind"`
	Name      string     `json:"name"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	Children  []CodeItem `json:"children,omitempty"`
}

// FileStructure is the structural summary of a single file.
type FileStructure struct {
	Path        string     `json:"path"`
	Items       []CodeItem `json:"items"`
	ContentHash string     `json:"contentHash"`
}
