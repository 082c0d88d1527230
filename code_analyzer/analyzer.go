package code_analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/utils"
)

// AnalyzerOptions configures a CodeAnalyzer.
type AnalyzerOptions struct {
	CacheDir      string
	MaxParseBytes int64
	Matcher       *utils.IgnoreMatcher
	Logger        *slog.Logger
}

// ScanResult summarizes a full scan pass.
type ScanResult struct {
	Tree     *models.DirNode
	Changed  []string
	Diff     []string
	Removed  []string
	Tracked  int
	Duration time.Duration
}

// CodeAnalyzer handles the analysis of project files.
type CodeAnalyzer struct {
	Cwd          string
	rootName     string
	cacheManager *CacheManager
	merger       *TreeMerger
	logger       *slog.Logger
	now          func() time.Time

	// scans are serialized so the cache and snapshot stay consistent
	scanMutex sync.Mutex
}

// NewCodeAnalyzer initializes a new CodeAnalyzer.
func NewCodeAnalyzer(cwd string, opts AnalyzerOptions) (*CodeAnalyzer, error) {
	log := logger.OrDiscard(opts.Logger)

	absRoot, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher, err = utils.NewIgnoreMatcher(absRoot, nil, nil)
		if err != nil {
			return nil, err
		}
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(absRoot, DefaultCacheDirName)
	}
	cacheManager, err := NewCacheManager(cacheDir, log)
	if err != nil {
		return nil, err
	}

	extractor := NewStructureExtractor(log)
	merger := NewTreeMerger(absRoot, matcher, extractor, cacheManager, opts.MaxParseBytes, log)

	return &CodeAnalyzer{
		Cwd:          absRoot,
		rootName:     filepath.Base(absRoot),
		cacheManager: cacheManager,
		merger:       merger,
		logger:       log.With("component", "analyzer"),
		now:          time.Now,
	}, nil
}

// Scan runs one incremental pass: load cache and snapshot, merge, persist both.
func (analyzer *CodeAnalyzer) Scan(ctx context.Context) (*ScanResult, error) {
	analyzer.scanMutex.Lock()
	defer analyzer.scanMutex.Unlock()

	started := analyzer.now()

	cache := analyzer.cacheManager.LoadProjectCache()
	prev := analyzer.cacheManager.LoadTreeSnapshot(analyzer.rootName)

	analyzer.merger.now = analyzer.now
	merged, err := analyzer.merger.Merge(ctx, prev, cache)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	if err := analyzer.cacheManager.SaveProjectCache(cache, analyzer.now()); err != nil {
		return nil, err
	}
	if err := analyzer.cacheManager.SaveTreeSnapshot(analyzer.rootName, merged.Tree); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Tree:     merged.Tree,
		Changed:  merged.Changed,
		Diff:     merged.Diff,
		Removed:  merged.Removed,
		Tracked:  merged.Tracked,
		Duration: analyzer.now().Sub(started),
	}

	analyzer.logger.Info("scan finished",
		"tracked", result.Tracked,
		"changed", len(result.Changed),
		"reparsed", len(result.Diff),
		"removed", len(result.Removed),
		"duration", result.Duration)

	return result, nil
}

// ListFiles returns every eligible file in the workspace.
func (analyzer *CodeAnalyzer) ListFiles(ctx context.Context) ([]string, error) {
	return analyzer.merger.ListFiles(ctx)
}

// PendingChanges reports eligible files whose hash differs from the cache, without writing anything.
func (analyzer *CodeAnalyzer) PendingChanges(ctx context.Context) ([]string, error) {
	files, err := analyzer.merger.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	cache := analyzer.cacheManager.LoadProjectCache()
	var pending []string
	for _, rel := range files {
		if HasChanged(utils.AbsolutePath(analyzer.Cwd, rel), cache).Changed {
			pending = append(pending, rel)
		}
	}
	return pending, nil
}

// LookupStructure returns the last scanned structure of a file.
func (analyzer *CodeAnalyzer) LookupStructure(relPath string) (*models.FileStructure, bool) {
	rel, err := utils.NormalizePath(analyzer.Cwd, relPath)
	if err != nil || rel == "" {
		return nil, false
	}

	tree := analyzer.cacheManager.LoadTreeSnapshot(analyzer.rootName)
	node := tree.Lookup(rel)
	if node == nil {
		return nil, false
	}
	structure := node.Structure
	return &structure, true
}

// ClearCache removes the scan cache and snapshot.
func (analyzer *CodeAnalyzer) ClearCache() error {
	return analyzer.cacheManager.ClearCache()
}

// GetCacheStats reports on-disk cache details and pass statistics.
func (analyzer *CodeAnalyzer) GetCacheStats() (map[string]interface{}, error) {
	return analyzer.cacheManager.GetCacheStats()
}

// CacheDir returns the directory holding the scan artifacts.
func (analyzer *CodeAnalyzer) CacheDir() string {
	return analyzer.cacheManager.CacheDir()
}
