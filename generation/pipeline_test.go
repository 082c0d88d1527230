package generation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meysamhadeli/codedoc/documentation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mutex   sync.Mutex
	docs    map[string]models.FileDocumentation
	removed []string
	flushes int
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]models.FileDocumentation)}
}

func (m *mockStore) Upsert(doc models.FileDocumentation) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.docs[doc.Path] = doc
	return nil
}

func (m *mockStore) Remove(relPath string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.docs[relPath]
	delete(m.docs, relPath)
	m.removed = append(m.removed, relPath)
	return ok, nil
}

func (m *mockStore) RemoveUnder(prefix string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var removed []string
	for key := range m.docs {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			removed = append(removed, key)
			delete(m.docs, key)
		}
	}
	m.removed = append(m.removed, removed...)
	return removed, nil
}

func (m *mockStore) Flush() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.flushes++
	return nil
}

func (m *mockStore) paths() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var paths []string
	for key := range m.docs {
		paths = append(paths, key)
	}
	sort.Strings(paths)
	return paths
}

func (m *mockStore) removedPaths() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.removed...)
}

func (m *mockStore) flushCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.flushes
}

// mockSummarizer records calls and delegates to an optional hook.
type mockSummarizer struct {
	mutex sync.Mutex
	calls map[string]int
	hook  func(ctx context.Context, relPath string) error
}

func newMockSummarizer(hook func(ctx context.Context, relPath string) error) *mockSummarizer {
	return &mockSummarizer{calls: make(map[string]int), hook: hook}
}

func (m *mockSummarizer) Generate(ctx context.Context, relPath string, content []byte, modTime time.Time) (*models.FileDocumentation, error) {
	m.mutex.Lock()
	m.calls[relPath]++
	m.mutex.Unlock()

	if m.hook != nil {
		if err := m.hook(ctx, relPath); err != nil {
			return nil, err
		}
	}
	return &models.FileDocumentation{Path: relPath, Summary: "summary of " + relPath, LastModified: modTime}, nil
}

func (m *mockSummarizer) callCount(relPath string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.calls[relPath]
}

type staticLister []string

func (s staticLister) ListFiles(ctx context.Context) ([]string, error) {
	return s, nil
}

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, rel := range paths {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
	}
}

func waitIdle(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
}

// blocker holds the first path in flight until release is closed.
type blocker struct {
	path    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlocker(path string) *blocker {
	return &blocker{path: path, started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blocker) hook(ctx context.Context, relPath string) error {
	if relPath != b.path {
		return nil
	}
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blocker) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(5 * time.Second):
		t.Fatal("blocked item never started")
	}
}

func TestPipeline_OneFailureDoesNotAbortOthers(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.py", "c.py")

	store := newMockStore()
	summarizer := newMockSummarizer(func(ctx context.Context, relPath string) error {
		if relPath == "b.py" {
			return errors.New("service unavailable")
		}
		return nil
	})
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{})

	assert.Equal(t, 3, p.EnqueueAll([]string{"a.py", "b.py", "c.py"}))
	waitIdle(t, p)

	assert.Equal(t, []string{"a.py", "c.py"}, store.paths())
	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Generated)
	assert.Equal(t, int64(1), stats.Failed)
	assert.GreaterOrEqual(t, store.flushCount(), 1, "a drained queue is flushed")
}

func TestPipeline_DuplicateEnqueueIsNoop(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.py")

	block := newBlocker("a.py")
	store := newMockStore()
	summarizer := newMockSummarizer(block.hook)
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{Concurrency: 1})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)

	assert.True(t, p.Enqueue("b.py"))
	assert.False(t, p.Enqueue("b.py"))
	assert.Equal(t, 1, p.Stats().Pending)

	close(block.release)
	waitIdle(t, p)

	assert.Equal(t, 1, summarizer.callCount("b.py"))
	assert.Equal(t, []string{"a.py", "b.py"}, store.paths())
}

func TestPipeline_DeletedWhileQueuedIsRemoved(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "gone.py")

	block := newBlocker("a.py")
	store := newMockStore()
	require.NoError(t, store.Upsert(models.FileDocumentation{Path: "gone.py", Summary: "stale"}))
	summarizer := newMockSummarizer(block.hook)
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{Concurrency: 1})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)
	require.True(t, p.Enqueue("gone.py"))
	require.NoError(t, os.Remove(filepath.Join(root, "gone.py")))

	close(block.release)
	waitIdle(t, p)

	assert.Equal(t, 0, summarizer.callCount("gone.py"))
	assert.Contains(t, store.removedPaths(), "gone.py")
	assert.Equal(t, []string{"a.py"}, store.paths())
	assert.Equal(t, int64(1), p.Stats().Removed)
}

func TestPipeline_HandleRemovalDropsQueuedPath(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.py")

	block := newBlocker("a.py")
	store := newMockStore()
	summarizer := newMockSummarizer(block.hook)
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{Concurrency: 1})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)
	require.True(t, p.Enqueue("b.py"))

	p.HandleRemoval("b.py")
	assert.Equal(t, 0, p.Stats().Pending)

	close(block.release)
	waitIdle(t, p)
	assert.Equal(t, 0, summarizer.callCount("b.py"))
}

func TestPipeline_HandleDirectoryRemoval(t *testing.T) {
	store := newMockStore()
	for _, path := range []string{"pkg/a.py", "pkg/sub/b.py", "other.py"} {
		require.NoError(t, store.Upsert(models.FileDocumentation{Path: path}))
	}
	p := NewPipeline(t.TempDir(), store, newMockSummarizer(nil), nil, PipelineOptions{})

	p.HandleDirectoryRemoval("pkg")
	assert.Equal(t, []string{"other.py"}, store.paths())
	assert.Equal(t, int64(2), p.Stats().Removed)
}

func TestPipeline_GenerationTimeout(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "slow.py")

	store := newMockStore()
	summarizer := newMockSummarizer(func(ctx context.Context, relPath string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{Timeout: 20 * time.Millisecond})

	p.Enqueue("slow.py")
	waitIdle(t, p)

	assert.Empty(t, store.paths())
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestPipeline_StopCancelsAfterGrace(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.py")

	block := newBlocker("a.py")
	store := newMockStore()
	summarizer := newMockSummarizer(block.hook)
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{Concurrency: 1})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)
	require.True(t, p.Enqueue("b.py"))

	started := time.Now()
	require.NoError(t, p.Stop(50*time.Millisecond))
	assert.Less(t, time.Since(started), 5*time.Second)

	assert.Empty(t, store.paths(), "results of cancelled generations are dropped")
	assert.Equal(t, 0, summarizer.callCount("b.py"), "queued work is discarded on stop")
	assert.GreaterOrEqual(t, store.flushCount(), 1)
	assert.False(t, p.Enqueue("c.py"))
}

func TestPipeline_StopWaitsForInFlight(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py")

	block := newBlocker("a.py")
	store := newMockStore()
	p := NewPipeline(root, store, newMockSummarizer(block.hook), nil, PipelineOptions{})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block.release)
	}()
	require.NoError(t, p.Stop(5*time.Second))
	assert.Equal(t, []string{"a.py"}, store.paths())
}

func TestPipeline_RegenerateAll(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "pkg/b.go")

	store := newMockStore()
	summarizer := newMockSummarizer(nil)
	p := NewPipeline(root, store, summarizer, staticLister{"a.py", "pkg/b.go"}, PipelineOptions{})

	added, err := p.RegenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	waitIdle(t, p)
	assert.Equal(t, []string{"a.py", "pkg/b.go"}, store.paths())

	// A second pass regenerates unchanged files again.
	_, err = p.RegenerateAll(context.Background())
	require.NoError(t, err)
	waitIdle(t, p)
	assert.Equal(t, 2, summarizer.callCount("a.py"))
}

func TestPipeline_RegenerateAllWithoutLister(t *testing.T) {
	p := NewPipeline(t.TempDir(), newMockStore(), newMockSummarizer(nil), nil, PipelineOptions{})
	_, err := p.RegenerateAll(context.Background())
	assert.Error(t, err)
}

func TestPipeline_RejectsIneligiblePaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, ".env", ".git/config", "a.py")

	store := newMockStore()
	summarizer := newMockSummarizer(nil)
	p := NewPipeline(root, store, summarizer, staticLister{"a.py", ".env"}, PipelineOptions{
		Eligible: func(relPath string) bool { return strings.HasSuffix(relPath, ".py") },
	})

	assert.False(t, p.Enqueue(".env"))
	assert.False(t, p.Enqueue(".git/config"))
	added, err := p.RegenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	waitIdle(t, p)

	assert.Equal(t, 0, summarizer.callCount(".env"))
	assert.Equal(t, 0, summarizer.callCount(".git/config"))
	assert.Equal(t, []string{"a.py"}, store.paths())
}

func TestPipeline_RemovalDuringGenerationIsKept(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py")

	block := newBlocker("a.py")
	store := newMockStore()
	p := NewPipeline(root, store, newMockSummarizer(block.hook), nil, PipelineOptions{})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)
	require.NoError(t, os.Remove(filepath.Join(root, "a.py")))
	p.HandleRemoval("a.py")

	close(block.release)
	waitIdle(t, p)

	assert.Empty(t, store.paths())
	assert.Equal(t, int64(0), p.Stats().Generated)
}

func TestPipeline_DirectoryRemovalDuringGenerationIsKept(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "pkg/a.py", "other.py")

	block := newBlocker("pkg/a.py")
	store := newMockStore()
	p := NewPipeline(root, store, newMockSummarizer(block.hook), nil, PipelineOptions{})

	require.True(t, p.Enqueue("pkg/a.py"))
	block.waitStarted(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "pkg")))
	p.HandleDirectoryRemoval("pkg")
	require.True(t, p.Enqueue("other.py"))

	close(block.release)
	waitIdle(t, p)

	assert.Equal(t, []string{"other.py"}, store.paths())
}

func TestPipeline_ReenqueueWhileInFlightRunsAfterwards(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.py", "b.py")

	block := newBlocker("a.py")
	store := newMockStore()
	summarizer := newMockSummarizer(block.hook)
	p := NewPipeline(root, store, summarizer, nil, PipelineOptions{Concurrency: 3})

	require.True(t, p.Enqueue("a.py"))
	block.waitStarted(t)
	require.True(t, p.Enqueue("a.py"))
	require.True(t, p.Enqueue("b.py"))

	// b.py is dispatched past the pending a.py, which waits for its own run.
	require.Eventually(t, func() bool {
		return summarizer.callCount("b.py") == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, summarizer.callCount("a.py"))
	assert.Equal(t, 1, p.Stats().Pending)

	close(block.release)
	waitIdle(t, p)

	assert.Equal(t, 2, summarizer.callCount("a.py"))
	assert.Equal(t, []string{"a.py", "b.py"}, store.paths())
}
