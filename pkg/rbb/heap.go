package rbb

import (
	"sync"
	"unsafe"
)

// Heap provides the storage for Create.
// A nil result indicates allocation failure.
type Heap interface {
	AllocArena(size int) []byte
	FreeArena([]byte)
	AllocBlocks(num int) []Block
	FreeBlocks([]Block)
}

// DefaultHeap allocates from the Go heap.
var DefaultHeap Heap = goHeap{}

type goHeap struct{}

func (goHeap) AllocArena(size int) []byte {
	if size < 1 {
		return nil
	}
	return make([]byte, size)
}

func (goHeap) FreeArena([]byte) {}

func (goHeap) AllocBlocks(num int) []Block {
	if num < 1 {
		return nil
	}
	return make([]Block, num)
}

func (goHeap) FreeBlocks([]Block) {}

// BlockCost is the number of bytes accounted for one descriptor by BudgetHeap.
const BlockCost = int(unsafe.Sizeof(Block{}))

// BudgetHeap is a Heap with a fixed byte budget.
type BudgetHeap struct {
	Limit int

	inUse int
	lock  sync.Mutex
}

// NewBudgetHeap creates a BudgetHeap.
func NewBudgetHeap(limit int) *BudgetHeap {
	return &BudgetHeap{Limit: limit}
}

// InUse gets the bytes currently allocated.
func (h *BudgetHeap) InUse() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.inUse
}

func (h *BudgetHeap) take(size int) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if size < 1 || h.inUse+size > h.Limit {
		return false
	}
	h.inUse += size
	return true
}

func (h *BudgetHeap) give(size int) {
	h.lock.Lock()
	h.inUse -= size
	h.lock.Unlock()
}

// AllocArena implements Heap.
func (h *BudgetHeap) AllocArena(size int) []byte {
	if !h.take(size) {
		return nil
	}
	return make([]byte, size)
}

// FreeArena implements Heap.
func (h *BudgetHeap) FreeArena(buf []byte) {
	h.give(len(buf))
}

// AllocBlocks implements Heap.
func (h *BudgetHeap) AllocBlocks(num int) []Block {
	if num < 1 || !h.take(num*BlockCost) {
		return nil
	}
	return make([]Block, num)
}

// FreeBlocks implements Heap.
func (h *BudgetHeap) FreeBlocks(blks []Block) {
	h.give(len(blks) * BlockCost)
}

// Owned is a Buffer whose storage is obtained from a Heap.
// Only Owned can be destroyed, a Buffer from Init keeps borrowing the
// caller's storage.
type Owned struct {
	*Buffer
	heap Heap
}

// Create allocates an arena of bufSize bytes and blkMax descriptors from
// heap and initializes a Buffer over them. Nothing is leaked on failure.
func Create(heap Heap, bufSize, blkMax int, opts ...Option) (*Owned, error) {
	if heap == nil {
		heap = DefaultHeap
	}
	arena := heap.AllocArena(bufSize)
	if arena == nil {
		return nil, ErrNoMemory
	}
	pool := heap.AllocBlocks(blkMax)
	if pool == nil {
		heap.FreeArena(arena)
		return nil, ErrNoMemory
	}
	return &Owned{Buffer: Init(arena, pool, opts...), heap: heap}, nil
}

// Destroy returns the storage to the heap. The buffer and all blocks must
// not be used afterwards.
func (o *Owned) Destroy() {
	rb := o.Buffer
	level := rb.acquire()
	arena, pool := rb.arena, rb.pool
	rb.arena, rb.pool = nil, nil
	rb.head, rb.tail, rb.live = nilIndex, nilIndex, 0
	rb.lock.Release(level)
	o.heap.FreeBlocks(pool)
	o.heap.FreeArena(arena)
}
