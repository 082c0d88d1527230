package code_analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/utils"
)

const (
	// DefaultCacheDirName is created under the workspace root.
	DefaultCacheDirName = ".codedoc"

	projectCacheFile = "cache.json"
	treeSnapshotFile = "tree.json"
)

// CacheStats tracks how scan passes treated files
type CacheStats struct {
	Reused        int64
	Cloned        int64
	Parsed        int64
	HashOnly      int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager persists the scan cache and the directory tree snapshot
type CacheManager struct {
	cacheDir string
	stats    *CacheStats
	logger   *slog.Logger
	mutex    sync.Mutex
}

// NewCacheManager creates a new cache manager instance.
// If cacheDir is empty, it defaults to ".codedoc" in the current working directory.
func NewCacheManager(cacheDir string, log *slog.Logger) (*CacheManager, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, DefaultCacheDirName)
	}

	// Ensure cache directory exists
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &CacheManager{
		cacheDir: cacheDir,
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
		logger: logger.OrDiscard(log).With("component", "cache"),
	}, nil
}

// CacheDir returns the directory holding the cache artifacts
func (cm *CacheManager) CacheDir() string {
	return cm.cacheDir
}

// LoadProjectCache reads the scan cache. A missing or corrupt file yields an empty cache.
func (cm *CacheManager) LoadProjectCache() *models.ProjectCache {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	path := filepath.Join(cm.cacheDir, projectCacheFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			cm.logger.Warn("failed to read scan cache, starting cold", "path", path, "error", err)
		}
		return models.NewProjectCache()
	}

	var cache models.ProjectCache
	if err := json.Unmarshal(data, &cache); err != nil {
		cm.logger.Warn("scan cache is corrupt, starting cold", "path", path, "error", err)
		return models.NewProjectCache()
	}
	if cache.Files == nil {
		cache.Files = make(map[string]models.FileRecord)
	}
	return &cache
}

// SaveProjectCache stamps and writes the scan cache
func (cm *CacheManager) SaveProjectCache(cache *models.ProjectCache, now time.Time) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cache.LastUpdated = now
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan cache: %w", err)
	}
	if err := utils.WriteFileAtomic(filepath.Join(cm.cacheDir, projectCacheFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write scan cache: %w", err)
	}
	return nil
}

// LoadTreeSnapshot returns the persisted tree for rootName, or nil when absent or corrupt.
func (cm *CacheManager) LoadTreeSnapshot(rootName string) *models.DirNode {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	path := filepath.Join(cm.cacheDir, treeSnapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			cm.logger.Warn("failed to read tree snapshot", "path", path, "error", err)
		}
		return nil
	}

	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		cm.logger.Warn("tree snapshot is corrupt, rebuilding", "path", path, "error", err)
		return nil
	}
	raw, ok := snapshot[rootName]
	if !ok {
		return nil
	}

	node, err := models.DecodeNode(raw)
	if err != nil {
		cm.logger.Warn("tree snapshot is corrupt, rebuilding", "path", path, "error", err)
		return nil
	}
	dir, ok := node.(*models.DirNode)
	if !ok {
		return nil
	}
	return dir
}

// SaveTreeSnapshot writes {rootName: tree}. A nil tree is stored as an empty directory.
func (cm *CacheManager) SaveTreeSnapshot(rootName string, tree *models.DirNode) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if tree == nil {
		tree = models.NewDirNode()
	}
	data, err := json.MarshalIndent(map[string]*models.DirNode{rootName: tree}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tree snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(filepath.Join(cm.cacheDir, treeSnapshotFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write tree snapshot: %w", err)
	}
	return nil
}

// ClearCache removes the scan cache and tree snapshot, leaving other artifacts in place
func (cm *CacheManager) ClearCache() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for _, name := range []string{projectCacheFile, treeSnapshotFile} {
		if err := os.Remove(filepath.Join(cm.cacheDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	cm.resetStats()
	return nil
}

// GetCacheStats reports on-disk cache details merged with pass statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	stats := cm.GetPerformanceStats()
	stats["cache_dir"] = cm.cacheDir

	var files int
	var totalSize int64
	for _, name := range []string{projectCacheFile, treeSnapshotFile} {
		info, err := os.Stat(filepath.Join(cm.cacheDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		files++
		totalSize += info.Size()
	}
	stats["cache_files"] = files
	stats["total_size"] = totalSize
	stats["tracked_files"] = len(cm.LoadProjectCache().Files)

	return stats, nil
}
