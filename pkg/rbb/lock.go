package rbb

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// IRQLevel is the token returned by IRQLock.Acquire, which must be passed
// back to Release to restore the previous interrupt state.
type IRQLevel uint32

// IRQLock is a critical section primitive which masks interrupts (or
// whatever preempts the caller) while held. Acquire must be safe to call from
// interrupt context and must never sleep.
type IRQLock interface {
	Acquire() IRQLevel
	Release(IRQLevel)
}

// SpinLock is an IRQLock spinning on a CAS.
// It yields the processor between attempts but never parks on a queue.
type SpinLock struct {
	state uint32
}

// Acquire implements IRQLock.
func (l *SpinLock) Acquire() IRQLevel {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		runtime.Gosched()
	}
	return 0
}

// Release implements IRQLock.
func (l *SpinLock) Release(IRQLevel) {
	atomic.StoreUint32(&l.state, 0)
}

// MutexLock is an IRQLock backed by sync.Mutex.
type MutexLock struct {
	mu sync.Mutex
}

// Acquire implements IRQLock.
func (l *MutexLock) Acquire() IRQLevel {
	l.mu.Lock()
	return 0
}

// Release implements IRQLock.
func (l *MutexLock) Release(IRQLevel) {
	l.mu.Unlock()
}
