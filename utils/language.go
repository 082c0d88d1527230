package utils

import (
	"path/filepath"
	"strings"
)

// DefaultImportantExtensions lists the source extensions tracked by default.
var DefaultImportantExtensions = []string{
	".py", ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx",
	".go", ".java", ".cs", ".rb", ".rs", ".php", ".kt", ".swift",
	".c", ".h", ".cpp", ".hpp", ".scala", ".vue", ".svelte",
}

var languageByExtension = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".go":   "go",
	".java": "java",
	".cs":   "csharp",
}

// GetSupportedLanguage returns the parser language for a file, or "" when no grammar is available.
func GetSupportedLanguage(filePath string) string {
	return languageByExtension[strings.ToLower(filepath.Ext(filePath))]
}
