package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileNames are read from the workspace root, in order.
var IgnoreFileNames = []string{".gitignore", ".codedoc-gitignore"}

// defaultIgnoredNames are directory or file names skipped at any depth.
var defaultIgnoredNames = map[string]struct{}{
	".git":             {},
	".svn":             {},
	".hg":              {},
	".idea":            {},
	".vscode":          {},
	".cache":           {},
	".codedoc":         {},
	"node_modules":     {},
	"bower_components": {},
	"vendor":           {},
	"dist":             {},
	"build":            {},
	"bin":              {},
	"obj":              {},
	"out":              {},
	"target":           {},
	"coverage":         {},
	"__pycache__":      {},
	".venv":            {},
	"venv":             {},
	".next":            {},
	".nuxt":            {},
}

// configFileNames keep the tool's own config out of the index.
var configFileNames = map[string]struct{}{
	"codedoc-config.yml":  {},
	"codedoc-config.yaml": {},
	"codedoc-config.json": {},
}

// defaultIgnoredSuffixes are matched against the lower-cased file name.
var defaultIgnoredSuffixes = []string{
	".min.js", ".min.css", ".map", ".lock", ".sum",
	".exe", ".dll", ".so", ".dylib", ".log", ".bak", ".bkp", ".tmp",
	".d.ts",
}

// IsDefaultIgnored reports whether any segment of a normalized path is on the built-in ignore list.
func IsDefaultIgnored(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for _, part := range parts {
		if _, ok := defaultIgnoredNames[strings.ToLower(part)]; ok {
			return true
		}
	}

	base := strings.ToLower(path.Base(relPath))
	if _, ok := configFileNames[base]; ok {
		return true
	}
	for _, suffix := range defaultIgnoredSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// IgnoreMatcher decides which workspace paths are eligible for indexing.
type IgnoreMatcher struct {
	rules      *ignore.GitIgnore
	patterns   []string
	extensions map[string]struct{}
}

// NewIgnoreMatcher builds a matcher from the root's ignore files, extra caller patterns
// and the important-extension allow-list. An empty allow-list uses DefaultImportantExtensions.
func NewIgnoreMatcher(root string, extraPatterns []string, extensions []string) (*IgnoreMatcher, error) {
	var patterns []string
	for _, name := range IgnoreFileNames {
		filePatterns, err := GetGitignorePatterns(filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
	}
	patterns = append(patterns, extraPatterns...)

	if len(extensions) == 0 {
		extensions = DefaultImportantExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	return &IgnoreMatcher{
		rules:      ignore.CompileIgnoreLines(patterns...),
		patterns:   patterns,
		extensions: allowed,
	}, nil
}

// Patterns returns the compiled gitignore-style patterns.
func (m *IgnoreMatcher) Patterns() []string {
	return m.patterns
}

// IsIgnored reports whether a normalized path is excluded by default or by ignore rules.
func (m *IgnoreMatcher) IsIgnored(relPath string, isDir bool) bool {
	if relPath == "" {
		return false
	}
	if IsDefaultIgnored(relPath) {
		return true
	}
	if m.rules == nil {
		return false
	}
	if isDir && m.rules.MatchesPath(relPath+"/") {
		return true
	}
	return m.rules.MatchesPath(relPath)
}

// IsImportant reports whether the file extension is on the allow-list.
func (m *IgnoreMatcher) IsImportant(relPath string) bool {
	_, ok := m.extensions[strings.ToLower(path.Ext(relPath))]
	return ok
}

// ShouldTrack combines the ignore rules and the allow-list for a file path.
func (m *IgnoreMatcher) ShouldTrack(relPath string) bool {
	return !m.IsIgnored(relPath, false) && m.IsImportant(relPath)
}

// GetGitignorePatterns reads the patterns of a gitignore-style file.
// A missing file yields no patterns.
func GetGitignorePatterns(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", ignorePath, err)
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}
