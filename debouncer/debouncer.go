// Package debouncer coalesces repeated triggers per key into a single delayed call.
package debouncer

import (
	"strings"
	"sync"
	"time"
)

// Timer is a pending call scheduled on a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls. Tests substitute a ManualClock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

type entry struct {
	timer Timer
	fn    func()
}

// Debouncer delays each key's callback until the key has been quiet for the window.
// Triggering a pending key cancels its timer and schedules the new callback.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	window  time.Duration
	pending map[string]*entry
	stopped bool
}

// New creates a debouncer. A nil clock uses the real clock.
func New(window time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{
		clock:   clock,
		window:  window,
		pending: make(map[string]*entry),
	}
}

// Trigger schedules fn for key, replacing any pending callback for the same key.
// It returns false once the debouncer is stopped.
func (d *Debouncer) Trigger(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	if existing, ok := d.pending[key]; ok {
		existing.timer.Stop()
	}

	e := &entry{fn: fn}
	e.timer = d.clock.AfterFunc(d.window, func() { d.fire(key, e) })
	d.pending[key] = e
	return true
}

// fire runs e if it is still the current entry for key.
func (d *Debouncer) fire(key string, e *entry) {
	d.mu.Lock()
	if current, ok := d.pending[key]; !ok || current != e {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	e.fn()
}

// Cancel drops the pending callback for key.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// CancelPrefix drops every pending key equal to prefix or below prefix + "/".
func (d *Debouncer) CancelPrefix(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cancelled := 0
	for key, e := range d.pending {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			e.timer.Stop()
			delete(d.pending, key)
			cancelled++
		}
	}
	return cancelled
}

// Pending returns the number of scheduled callbacks.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending callback and rejects future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}
