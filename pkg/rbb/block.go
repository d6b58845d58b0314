package rbb

import "sync/atomic"

// Status is the lifecycle state of a block.
type Status int32

// Block states.
const (
	// StatusUnused means the descriptor is free.
	StatusUnused Status = iota
	// StatusInited means the region is reserved and being written.
	StatusInited
	// StatusPut means the payload is complete and waiting for a consumer.
	StatusPut
	// StatusGot means a consumer owns the region.
	StatusGot
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusUnused:
		return "unused"
	case StatusInited:
		return "inited"
	case StatusPut:
		return "put"
	case StatusGot:
		return "got"
	}
	return "invalid"
}

const nilIndex int32 = -1

// Block is a descriptor of a region in the arena.
// Blocks are only created by Init/Create as part of the descriptor pool,
// a *Block is the handle returned by Alloc and Get.
type Block struct {
	status int32
	offset int
	size   int

	// index in the pool, links in the live list.
	index int32
	prev  int32
	next  int32

	owner *Buffer
}

// Status gets the current status.
func (b *Block) Status() Status {
	return Status(atomic.LoadInt32(&b.status))
}

func (b *Block) setStatus(s Status) {
	atomic.StoreInt32(&b.status, int32(s))
}

// Offset gets the offset of the region in the arena.
func (b *Block) Offset() int {
	return b.offset
}

// Len gets the length of the region.
func (b *Block) Len() int {
	return b.size
}

// Bytes returns the region as a slice into the arena.
// The capacity is limited to the region, so append never spills into
// a neighbor.
func (b *Block) Bytes() []byte {
	end := b.offset + b.size
	return b.owner.arena[b.offset:end:end]
}

// end is the arena offset right after the region.
func (b *Block) end() int {
	return b.offset + b.size
}
