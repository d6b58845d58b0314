package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the FIFO is not ready for communication.
	ErrNotReady = errors.New("not ready")
	// ErrAbortedFrame indicates the frame was interrupted by a resync.
	ErrAbortedFrame = errors.New("aborted frame")
)

// FrameError indicates a stored frame can't be decoded.
type FrameError struct {
	Offset int
	Reason string
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("bad frame at %d: %s", e.Offset, e.Reason)
}
