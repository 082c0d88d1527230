package code_analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root string, rel string, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestMerger(t *testing.T, root string) *TreeMerger {
	t.Helper()
	matcher, err := utils.NewIgnoreMatcher(root, nil, nil)
	require.NoError(t, err)
	return NewTreeMerger(root, matcher, NewStructureExtractor(nil), nil, 0, nil)
}

func TestMerge_ReusesUnchangedSiblings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def foo():\n    return 1\n")
	writeFile(t, root, "b.py", "def bar():\n    return 2\n")

	merger := newTestMerger(t, root)
	cache := models.NewProjectCache()

	first, err := merger.Merge(context.Background(), nil, cache)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, first.Changed)
	assert.Equal(t, []string{"a.py", "b.py"}, first.Diff)

	writeFile(t, root, "a.py", "def foo():\n    return 10\n\n\ndef extra():\n    pass\n")

	second, err := merger.Merge(context.Background(), first.Tree, cache)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, second.Changed)
	assert.Equal(t, []string{"a.py"}, second.Diff)

	assert.Same(t, first.Tree.ChildFile("b.py"), second.Tree.ChildFile("b.py"))
	assert.NotSame(t, first.Tree.ChildFile("a.py"), second.Tree.ChildFile("a.py"))
	assert.Len(t, second.Tree.ChildFile("a.py").Structure.Items, 2)
}

func TestMerge_ClonesNodeWhenHashDrifted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def foo():\n    return 1\n")

	merger := newTestMerger(t, root)
	cache := models.NewProjectCache()
	first, err := merger.Merge(context.Background(), nil, cache)
	require.NoError(t, err)

	// The snapshot carries a stale hash while the cache is current.
	stale := first.Tree.ChildFile("a.py")
	stale.Structure.ContentHash = "stale"

	second, err := merger.Merge(context.Background(), first.Tree, cache)
	require.NoError(t, err)
	assert.Empty(t, second.Diff)

	repaired := second.Tree.ChildFile("a.py")
	require.NotNil(t, repaired)
	assert.NotSame(t, stale, repaired)
	assert.Equal(t, cache.Files[filepath.Join(root, "a.py")].ContentHash, repaired.Structure.ContentHash)
	assert.Equal(t, stale.Structure.Items, repaired.Structure.Items)
}

func TestMerge_OmitsEmptyAndIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.py", "def run():\n    pass\n")
	writeFile(t, root, "docs/readme.md", "# docs\n")
	writeFile(t, root, "node_modules/dep/index.js", "function x() {}\n")
	writeFile(t, root, "scripts/tool.rb", "def tool; end\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "deeper"), 0755))

	merger := newTestMerger(t, root)
	cache := models.NewProjectCache()
	result, err := merger.Merge(context.Background(), nil, cache)
	require.NoError(t, err)

	require.NotNil(t, result.Tree)
	assert.Len(t, result.Tree.Children, 1)
	assert.NotNil(t, result.Tree.Lookup("src/app.py"))

	// Files without a grammar are tracked by hash only.
	assert.Contains(t, cache.Files, filepath.Join(root, "scripts", "tool.rb"))
	assert.Nil(t, result.Tree.ChildDir("scripts"))
	assert.Equal(t, 2, result.Tracked)
	assert.NotContains(t, cache.Files, filepath.Join(root, "node_modules", "dep", "index.js"))
}

func TestMerge_ReportsRemovedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def foo():\n    pass\n")
	writeFile(t, root, "pkg/b.py", "def bar():\n    pass\n")

	merger := newTestMerger(t, root)
	cache := models.NewProjectCache()
	first, err := merger.Merge(context.Background(), nil, cache)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "pkg", "b.py")))

	second, err := merger.Merge(context.Background(), first.Tree, cache)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/b.py"}, second.Removed)
	assert.NotContains(t, cache.Files, filepath.Join(root, "pkg", "b.py"))
	assert.Nil(t, second.Tree.ChildDir("pkg"))
}

func TestMerge_SymlinkCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.py", "def a():\n    pass\n")
	writeFile(t, root, "lib/c.py", "def c():\n    pass\n")

	if err := os.Symlink(root, filepath.Join(root, "src", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "lib"), filepath.Join(root, "src", "shared")))

	merger := newTestMerger(t, root)
	result, err := merger.Merge(context.Background(), nil, models.NewProjectCache())
	require.NoError(t, err)

	assert.NotNil(t, result.Tree.Lookup("src/a.py"))
	assert.Nil(t, result.Tree.ChildDir("src").ChildDir("loop"), "a link back to an ancestor is a cycle")

	// The sibling branch "lib" does not make "src/shared" look visited.
	assert.NotNil(t, result.Tree.Lookup("lib/c.py"))
	assert.NotNil(t, result.Tree.Lookup("src/shared/c.py"))

	files, err := merger.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/c.py", "src/a.py", "src/shared/c.py"}, files)
}

func TestMerge_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestMerger(t, root).Merge(ctx, nil, models.NewProjectCache())
	assert.ErrorIs(t, err, context.Canceled)
}
