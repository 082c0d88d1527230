package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_DedupAndOrder(t *testing.T) {
	q := NewQueue()
	assert.True(t, q.Enqueue("a.py"))
	assert.True(t, q.Enqueue("b.py"))
	assert.False(t, q.Enqueue("a.py"))
	assert.Equal(t, 2, q.Len())

	first, ok := q.Pop(nil)
	assert.True(t, ok)
	assert.Equal(t, "a.py", first)

	// Once popped a path may be queued again.
	assert.True(t, q.Enqueue("a.py"))
	assert.Equal(t, []string{"b.py", "a.py"}, q.Clear())
}

func TestQueue_PopSkipsBusyPaths(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a.py")
	q.Enqueue("b.py")
	q.Enqueue("c.py")

	busy := func(relPath string) bool { return relPath == "a.py" }
	next, ok := q.Pop(busy)
	assert.True(t, ok)
	assert.Equal(t, "b.py", next)

	next, ok = q.Pop(busy)
	assert.True(t, ok)
	assert.Equal(t, "c.py", next)

	_, ok = q.Pop(busy)
	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
	assert.False(t, q.Enqueue("a.py"))

	next, ok = q.Pop(nil)
	assert.True(t, ok)
	assert.Equal(t, "a.py", next)
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	for _, p := range []string{"src/a.py", "src/sub/b.py", "srcfile.py", "lib/c.py"} {
		q.Enqueue(p)
	}

	assert.True(t, q.Remove("lib/c.py"))
	assert.False(t, q.Remove("lib/c.py"))
	assert.Equal(t, 2, q.RemoveUnder("src"))
	assert.Equal(t, 1, q.Len())
	assert.True(t, q.Enqueue("src/a.py"))

	assert.Equal(t, []string{"srcfile.py", "src/a.py"}, q.Clear())
	_, ok := q.Pop(nil)
	assert.False(t, ok)
	assert.Empty(t, q.Clear())
}
