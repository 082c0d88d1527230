package generation

import "sync/atomic"

// drainLock admits a single drain loop without blocking the callers that lose.
type drainLock struct {
	state atomic.Int32
}

func (l *drainLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

func (l *drainLock) Release() {
	l.state.Store(0)
}

func (l *drainLock) Held() bool {
	return l.state.Load() == 1
}
