package rbb

import "fmt"

// Buffer is a ring block buffer over a fixed arena and a fixed pool of
// block descriptors.
type Buffer struct {
	arena []byte
	pool  []Block
	lock  IRQLock

	// live list in allocation order.
	head int32
	tail int32
	live int

	allocOK      uint64
	allocNoBlock uint64
	allocNoSpace uint64
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLock uses the specified IRQLock instead of a SpinLock.
func WithLock(l IRQLock) Option {
	return func(rb *Buffer) {
		rb.lock = l
	}
}

// Init creates a Buffer over caller owned storage.
// Both arena and pool must be non-empty. The storage must not be accessed
// by the caller other than through block handles afterwards.
func Init(arena []byte, pool []Block, opts ...Option) *Buffer {
	if len(arena) == 0 {
		panic("rbb: empty arena")
	}
	if len(pool) == 0 {
		panic("rbb: empty block pool")
	}
	rb := &Buffer{
		arena: arena,
		pool:  pool,
		head:  nilIndex,
		tail:  nilIndex,
	}
	for n := range pool {
		pool[n] = Block{index: int32(n), prev: nilIndex, next: nilIndex, owner: rb}
	}
	for _, opt := range opts {
		opt(rb)
	}
	if rb.lock == nil {
		rb.lock = &SpinLock{}
	}
	return rb
}

// Capacity gets the size of the arena.
func (rb *Buffer) Capacity() int {
	return len(rb.arena)
}

// BlockMax gets the size of the descriptor pool.
func (rb *Buffer) BlockMax() int {
	return len(rb.pool)
}

// Alloc reserves a contiguous region of size bytes.
// It returns ErrNoBlock when all descriptors are live and ErrNoSpace when
// no gap is large enough, both are back-pressure rather than failures.
func (rb *Buffer) Alloc(size int) (*Block, error) {
	if size < 1 {
		panic(fmt.Sprintf("rbb: invalid block size %d", size))
	}
	level := rb.acquire()
	defer rb.lock.Release(level)

	idx := rb.findUnused()
	if idx == nilIndex {
		rb.allocNoBlock++
		return nil, ErrNoBlock
	}
	offset, ok := rb.findSpace(size)
	if !ok {
		rb.allocNoSpace++
		return nil, ErrNoSpace
	}
	blk := &rb.pool[idx]
	blk.offset, blk.size = offset, size
	blk.setStatus(StatusInited)
	rb.pushBack(idx)
	rb.allocOK++
	return blk, nil
}

// Put marks the payload of a block complete. It doesn't take the lock:
// only the owner of the block (the caller of Alloc) may call it, and the
// atomic status store is observed by the next Get.
func (rb *Buffer) Put(blk *Block) {
	rb.mustOwn(blk)
	if blk.Status() != StatusInited {
		panic(fmt.Sprintf("rbb: put on %s block", blk.Status()))
	}
	blk.setStatus(StatusPut)
}

// Get returns the oldest block if it's ready for consuming, otherwise nil.
// Only the head of the live list is inspected, so blocks are delivered in
// allocation order.
func (rb *Buffer) Get() *Block {
	level := rb.acquire()
	defer rb.lock.Release(level)
	if rb.head == nilIndex {
		return nil
	}
	blk := &rb.pool[rb.head]
	if blk.Status() != StatusPut {
		return nil
	}
	blk.setStatus(StatusGot)
	return blk
}

// Free retires a block returned by Get, releasing its region and descriptor.
func (rb *Buffer) Free(blk *Block) {
	rb.mustOwn(blk)
	level := rb.acquire()
	defer rb.lock.Release(level)
	rb.freeLocked(blk)
}

func (rb *Buffer) freeLocked(blk *Block) {
	if s := blk.Status(); s != StatusGot {
		panic(fmt.Sprintf("rbb: free on %s block", s))
	}
	rb.remove(blk.index)
	blk.offset, blk.size = 0, 0
	blk.setStatus(StatusUnused)
}

func (rb *Buffer) mustOwn(blk *Block) {
	if blk == nil {
		panic("rbb: nil block")
	}
	if blk.owner != rb {
		panic("rbb: block doesn't belong to this buffer")
	}
}

func (rb *Buffer) findUnused() int32 {
	for n := range rb.pool {
		if rb.pool[n].Status() == StatusUnused {
			return int32(n)
		}
	}
	return nilIndex
}

// findSpace decides where a new block of size bytes goes.
//
// Unwrapped (head at or before tail):
//
//	|  leading  | head ... tail |  trailing  |
//
// the trailing gap is preferred, then the leading gap which wraps the layout.
//
// Wrapped (tail before head):
//
//	| ... tail |  gap  | head ... |
//
// only the gap between tail and head can be used.
func (rb *Buffer) findSpace(size int) (int, bool) {
	if rb.head == nilIndex {
		return 0, size <= len(rb.arena)
	}
	head, tail := &rb.pool[rb.head], &rb.pool[rb.tail]
	if head.offset <= tail.offset {
		if len(rb.arena)-tail.end() >= size {
			return tail.end(), true
		}
		if head.offset >= size {
			return 0, true
		}
		return 0, false
	}
	if head.offset-tail.end() >= size {
		return tail.end(), true
	}
	return 0, false
}

func (rb *Buffer) acquire() IRQLevel {
	if rb.pool == nil {
		panic("rbb: buffer destroyed")
	}
	return rb.lock.Acquire()
}

func (rb *Buffer) pushBack(idx int32) {
	blk := &rb.pool[idx]
	blk.prev, blk.next = rb.tail, nilIndex
	if rb.tail == nilIndex {
		rb.head = idx
	} else {
		rb.pool[rb.tail].next = idx
	}
	rb.tail = idx
	rb.live++
}

func (rb *Buffer) remove(idx int32) {
	blk := &rb.pool[idx]
	if blk.prev == nilIndex {
		rb.head = blk.next
	} else {
		rb.pool[blk.prev].next = blk.next
	}
	if blk.next == nilIndex {
		rb.tail = blk.prev
	} else {
		rb.pool[blk.next].prev = blk.prev
	}
	blk.prev, blk.next = nilIndex, nilIndex
	rb.live--
}
