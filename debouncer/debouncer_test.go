package debouncer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newManual() (*Debouncer, *ManualClock) {
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(time.Second, clock), clock
}

func TestTrigger_CollapsesBurst(t *testing.T) {
	d, clock := newManual()
	var calls []int

	for i := 0; i < 5; i++ {
		i := i
		d.Trigger("a.py", func() { calls = append(calls, i) })
		clock.Advance(500 * time.Millisecond)
	}
	assert.Empty(t, calls, "each trigger restarts the quiet window")

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, []int{4}, calls, "only the last callback runs")
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestTrigger_KeysAreIndependent(t *testing.T) {
	d, clock := newManual()
	var fired []string

	d.Trigger("a", func() { fired = append(fired, "a") })
	clock.Advance(600 * time.Millisecond)
	d.Trigger("b", func() { fired = append(fired, "b") })
	assert.Equal(t, 2, d.Pending())

	clock.Advance(400 * time.Millisecond)
	assert.Equal(t, []string{"a"}, fired)

	clock.Advance(600 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
}

func TestCancel(t *testing.T) {
	d, clock := newManual()
	var count int32

	d.Trigger("a", func() { atomic.AddInt32(&count, 1) })
	assert.True(t, d.Cancel("a"))
	assert.False(t, d.Cancel("a"))

	clock.Advance(2 * time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestCancelPrefix(t *testing.T) {
	d, clock := newManual()
	var fired []string
	for _, key := range []string{"src", "src/a.py", "src/sub/b.py", "srcfile.py", "lib/c.py"} {
		key := key
		d.Trigger(key, func() { fired = append(fired, key) })
	}

	assert.Equal(t, 3, d.CancelPrefix("src"))
	clock.Advance(time.Second)
	assert.ElementsMatch(t, []string{"srcfile.py", "lib/c.py"}, fired)
}

func TestStop_RejectsNewTriggers(t *testing.T) {
	d, clock := newManual()
	var count int32

	d.Trigger("a", func() { atomic.AddInt32(&count, 1) })
	d.Stop()
	assert.False(t, d.Trigger("b", func() { atomic.AddInt32(&count, 1) }))

	clock.Advance(5 * time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
	assert.Equal(t, 0, d.Pending())
}

func TestCallbackMayRetrigger(t *testing.T) {
	d, clock := newManual()
	var runs int

	var fn func()
	fn = func() {
		runs++
		if runs < 3 {
			d.Trigger("loop", fn)
		}
	}
	d.Trigger("loop", fn)

	clock.Advance(time.Second)
	assert.Equal(t, 1, runs)
	clock.Advance(time.Second)
	clock.Advance(time.Second)
	assert.Equal(t, 3, runs)
	assert.Equal(t, 0, d.Pending())
}

func TestRealClock(t *testing.T) {
	d := New(10*time.Millisecond, nil)
	done := make(chan struct{})
	d.Trigger("a", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced callback never ran")
	}
}
