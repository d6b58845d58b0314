package rbb

import (
	"context"
	"time"
)

// Signal wakes up a consumer after a producer puts a block.
// It holds at most one pending notification.
type Signal chan struct{}

// NewSignal creates a Signal.
func NewSignal() Signal {
	return make(Signal, 1)
}

// Post notifies the waiter, never blocks.
func (s Signal) Post() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// Wait waits for a notification, the timeout or context cancellation.
// A non-positive timeout waits without limit.
// It returns false only when the context is done.
func (s Signal) Wait(ctx context.Context, timeout time.Duration) bool {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-s:
		return true
	case <-timer:
		return true
	case <-ctx.Done():
		return false
	}
}
