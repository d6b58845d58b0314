package rbb

import "errors"

var (
	// ErrNoBlock indicates all block descriptors are in use.
	ErrNoBlock = errors.New("no free block descriptor")
	// ErrNoSpace indicates no contiguous gap is large enough.
	ErrNoSpace = errors.New("no space")
	// ErrNoMemory indicates the heap failed to provide storage.
	ErrNoMemory = errors.New("out of memory")
)
