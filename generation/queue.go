package generation

import (
	"strings"
	"sync"
)

// Queue is a FIFO of distinct normalized paths.
type Queue struct {
	mutex sync.Mutex
	items []string
	index map[string]struct{}
}

func NewQueue() *Queue {
	return &Queue{index: make(map[string]struct{})}
}

// Enqueue appends relPath unless it is already pending.
func (q *Queue) Enqueue(relPath string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if _, ok := q.index[relPath]; ok {
		return false
	}
	q.index[relPath] = struct{}{}
	q.items = append(q.items, relPath)
	return true
}

// Pop removes and returns the oldest pending path for which busy reports false.
// A nil busy takes the head of the queue.
func (q *Queue) Pop(busy func(relPath string) bool) (string, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for i, relPath := range q.items {
		if busy != nil && busy(relPath) {
			continue
		}
		copy(q.items[i:], q.items[i+1:])
		q.items[len(q.items)-1] = ""
		q.items = q.items[:len(q.items)-1]
		delete(q.index, relPath)
		return relPath, true
	}
	return "", false
}

func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

// Remove drops relPath if it is pending.
func (q *Queue) Remove(relPath string) bool {
	return q.removeWhere(func(p string) bool { return p == relPath }) > 0
}

// RemoveUnder drops every pending path at or below prefix.
func (q *Queue) RemoveUnder(prefix string) int {
	return q.removeWhere(func(p string) bool {
		return prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/")
	})
}

// Clear drops everything and returns the paths that were pending, oldest first.
func (q *Queue) Clear() []string {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	dropped := q.items
	q.items = nil
	q.index = make(map[string]struct{})
	return dropped
}

func (q *Queue) removeWhere(match func(string) bool) int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, p := range q.items {
		if match(p) {
			delete(q.index, p)
			removed++
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = ""
	}
	q.items = kept
	return removed
}
