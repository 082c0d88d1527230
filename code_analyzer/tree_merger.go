package code_analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/utils"
)

// DefaultMaxParseBytes bounds the files handed to the parser.
const DefaultMaxParseBytes = 512 * 1024

var errFileTooLarge = errors.New("file exceeds parse size limit")

// MergeResult describes one merge pass.
type MergeResult struct {
	Tree *models.DirNode
	// Changed holds files whose content hash differs from the cache or that are new.
	Changed []string
	// Diff holds files whose structure was extracted again in this pass.
	Diff []string
	// Removed holds previously tracked files that no longer exist or are no longer eligible.
	Removed []string
	Tracked int
}

// visitedSet is an immutable chain of real directory paths on the current branch.
// Descending extends the chain, so sibling branches never see each other's visits.
type visitedSet struct {
	path   string
	parent *visitedSet
}

func (v *visitedSet) contains(path string) bool {
	for cur := v; cur != nil; cur = cur.parent {
		if cur.path == path {
			return true
		}
	}
	return false
}

func (v *visitedSet) with(path string) *visitedSet {
	return &visitedSet{path: path, parent: v}
}

type treeEntry struct {
	name  string
	abs   string
	rel   string
	isDir bool
}

type mergeState struct {
	cache  *models.ProjectCache
	seen   map[string]string
	result *MergeResult
}

// TreeMerger rebuilds the directory tree, reusing nodes of unchanged files.
type TreeMerger struct {
	root          string
	matcher       *utils.IgnoreMatcher
	parser        *SyntaxParser
	extractor     *StructureExtractor
	cacheManager  *CacheManager
	maxParseBytes int64
	now           func() time.Time
	logger        *slog.Logger
}

// NewTreeMerger creates a merger for the workspace root.
func NewTreeMerger(root string, matcher *utils.IgnoreMatcher, extractor *StructureExtractor, cacheManager *CacheManager, maxParseBytes int64, log *slog.Logger) *TreeMerger {
	if maxParseBytes <= 0 {
		maxParseBytes = DefaultMaxParseBytes
	}
	return &TreeMerger{
		root:          root,
		matcher:       matcher,
		parser:        NewSyntaxParser(),
		extractor:     extractor,
		cacheManager:  cacheManager,
		maxParseBytes: maxParseBytes,
		now:           time.Now,
		logger:        logger.OrDiscard(log).With("component", "tree_merger"),
	}
}

// Merge walks the workspace against the previous tree and the scan cache.
// Every eligible file's cache entry is refreshed and entries for vanished files are pruned.
func (m *TreeMerger) Merge(ctx context.Context, prev *models.DirNode, cache *models.ProjectCache) (*MergeResult, error) {
	if cache.Files == nil {
		cache.Files = make(map[string]models.FileRecord)
	}

	realRoot, err := filepath.EvalSymlinks(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	state := &mergeState{
		cache:  cache,
		seen:   make(map[string]string),
		result: &MergeResult{},
	}

	tree, err := m.mergeDir(ctx, m.root, "", prev, (*visitedSet)(nil).with(realRoot), state)
	if err != nil {
		return nil, err
	}
	state.result.Tree = tree

	seenRel := make(map[string]struct{}, len(state.seen))
	for _, rel := range state.seen {
		seenRel[rel] = struct{}{}
	}

	removed := make(map[string]struct{})
	for abs := range cache.Files {
		if _, ok := state.seen[abs]; ok {
			continue
		}
		delete(cache.Files, abs)
		if rel, err := utils.NormalizePath(m.root, abs); err == nil && rel != "" {
			removed[rel] = struct{}{}
		}
	}
	for _, rel := range prev.FilePaths() {
		removed[rel] = struct{}{}
	}
	for rel := range removed {
		if _, ok := seenRel[rel]; !ok {
			state.result.Removed = append(state.result.Removed, rel)
		}
	}
	sort.Strings(state.result.Removed)
	state.result.Tracked = len(state.seen)

	return state.result, nil
}

// ListFiles returns every eligible file under the root, ignoring the change check.
func (m *TreeMerger) ListFiles(ctx context.Context) ([]string, error) {
	realRoot, err := filepath.EvalSymlinks(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	var files []string
	err = m.walkFiles(ctx, m.root, "", (*visitedSet)(nil).with(realRoot), func(entry treeEntry) {
		files = append(files, entry.rel)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (m *TreeMerger) mergeDir(ctx context.Context, absDir string, relDir string, prev *models.DirNode, visited *visitedSet, state *mergeState) (*models.DirNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := m.listDir(absDir, relDir)
	if err != nil {
		if relDir == "" {
			return nil, err
		}
		m.logger.Warn("skipping unreadable directory", "path", relDir, "error", err)
		return nil, nil
	}

	node := models.NewDirNode()
	for _, entry := range entries {
		if entry.isDir {
			next, ok := m.descend(entry, visited)
			if !ok {
				continue
			}
			child, err := m.mergeDir(ctx, entry.abs, entry.rel, prev.ChildDir(entry.name), next, state)
			if err != nil {
				return nil, err
			}
			if child != nil {
				node.Children[entry.name] = child
			}
			continue
		}

		if file := m.mergeFile(ctx, entry, prev.ChildFile(entry.name), state); file != nil {
			node.Children[entry.name] = file
		}
	}

	if len(node.Children) == 0 {
		return nil, nil
	}
	return node, nil
}

func (m *TreeMerger) mergeFile(ctx context.Context, entry treeEntry, prev *models.FileNode, state *mergeState) *models.FileNode {
	change := HasChanged(entry.abs, state.cache)
	state.cache.Files[entry.abs] = models.FileRecord{ContentHash: change.Hash, LastParsedAt: m.now()}
	state.seen[entry.abs] = entry.rel
	if change.Changed {
		state.result.Changed = append(state.result.Changed, entry.rel)
	}

	if !change.Changed && prev != nil {
		if prev.Structure.ContentHash == change.Hash {
			m.cacheManager.recordReuse()
			return prev
		}
		clone := *prev
		clone.Structure.ContentHash = change.Hash
		m.cacheManager.recordClone()
		return &clone
	}

	structure, err := m.extract(ctx, entry)
	if err != nil {
		if errors.Is(err, ErrUnsupportedLanguage) || errors.Is(err, ErrNoQuery) || errors.Is(err, errFileTooLarge) {
			m.logger.Debug("tracking file by hash only", "path", entry.rel, "reason", err)
		} else {
			m.logger.Warn("structure extraction failed", "path", entry.rel, "error", err)
		}
		m.cacheManager.recordHashOnly()
		return nil
	}

	m.cacheManager.recordParse()
	state.result.Diff = append(state.result.Diff, entry.rel)
	return &models.FileNode{Structure: *structure}
}

// extract parses a single file and reduces it to its structure.
func (m *TreeMerger) extract(ctx context.Context, entry treeEntry) (*models.FileStructure, error) {
	if !m.parser.Supports(entry.rel) {
		return nil, fmt.Errorf("%s: %w", entry.rel, ErrUnsupportedLanguage)
	}

	info, err := os.Stat(entry.abs)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %s, error: %w", entry.rel, err)
	}
	if info.Size() > m.maxParseBytes {
		return nil, fmt.Errorf("%s (%d bytes): %w", entry.rel, info.Size(), errFileTooLarge)
	}

	content, err := os.ReadFile(entry.abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s, error: %w", entry.rel, err)
	}

	parsed, err := m.parser.Parse(ctx, entry.rel, content)
	if err != nil {
		return nil, err
	}
	return m.extractor.Extract(parsed, HashBytes(content))
}

func (m *TreeMerger) walkFiles(ctx context.Context, absDir string, relDir string, visited *visitedSet, visit func(treeEntry)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := m.listDir(absDir, relDir)
	if err != nil {
		if relDir == "" {
			return err
		}
		m.logger.Warn("skipping unreadable directory", "path", relDir, "error", err)
		return nil
	}

	for _, entry := range entries {
		if !entry.isDir {
			visit(entry)
			continue
		}
		next, ok := m.descend(entry, visited)
		if !ok {
			continue
		}
		if err := m.walkFiles(ctx, entry.abs, entry.rel, next, visit); err != nil {
			return err
		}
	}
	return nil
}

// descend resolves a directory's real path and refuses to enter it twice on one branch.
func (m *TreeMerger) descend(entry treeEntry, visited *visitedSet) (*visitedSet, bool) {
	real, err := filepath.EvalSymlinks(entry.abs)
	if err != nil {
		m.logger.Warn("cannot resolve directory", "path", entry.rel, "error", err)
		return nil, false
	}
	if visited.contains(real) {
		m.logger.Debug("skipping directory cycle", "path", entry.rel, "target", real)
		return nil, false
	}
	return visited.with(real), true
}

// listDir returns the eligible entries of a directory in name order.
func (m *TreeMerger) listDir(absDir string, relDir string) ([]treeEntry, error) {
	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	entries := make([]treeEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entry := treeEntry{
			name:  de.Name(),
			abs:   filepath.Join(absDir, de.Name()),
			rel:   utils.JoinRelative(relDir, de.Name()),
			isDir: de.IsDir(),
		}

		switch {
		case de.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(entry.abs)
			if err != nil {
				m.logger.Debug("skipping broken symlink", "path", entry.rel)
				continue
			}
			if !info.IsDir() && !info.Mode().IsRegular() {
				continue
			}
			entry.isDir = info.IsDir()
		case !entry.isDir && !de.Type().IsRegular():
			continue
		}

		if m.matcher.IsIgnored(entry.rel, entry.isDir) {
			continue
		}
		if !entry.isDir && !m.matcher.IsImportant(entry.rel) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
