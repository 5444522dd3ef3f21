package bench

import "sync/atomic"

// RunLock is a non-blocking lock guarding one matrix run at a time
type RunLock struct {
	state atomic.Int32 // 0 = free, 1 = running
}

// TryAcquire takes the lock if it is free
func (l *RunLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *RunLock) Release() {
	l.state.Store(0)
}
