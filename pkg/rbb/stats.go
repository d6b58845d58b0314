package rbb

import "fmt"

// Stats is a snapshot of the state of a Buffer.
type Stats struct {
	Capacity int
	BlockMax int

	Live   int
	Inited int
	Put    int
	Got    int
	// Used is the number of arena bytes held by live blocks.
	Used int

	AllocOK      uint64
	AllocNoBlock uint64
	AllocNoSpace uint64
}

// Stats takes a snapshot.
func (rb *Buffer) Stats() (s Stats) {
	level := rb.acquire()
	defer rb.lock.Release(level)

	s.Capacity, s.BlockMax, s.Live = len(rb.arena), len(rb.pool), rb.live
	s.AllocOK, s.AllocNoBlock, s.AllocNoSpace = rb.allocOK, rb.allocNoBlock, rb.allocNoSpace
	for idx := rb.head; idx != nilIndex; idx = rb.pool[idx].next {
		blk := &rb.pool[idx]
		s.Used += blk.size
		switch blk.Status() {
		case StatusInited:
			s.Inited++
		case StatusPut:
			s.Put++
		case StatusGot:
			s.Got++
		}
	}
	return
}

// Verify checks the internal invariants and returns the first violation.
func (rb *Buffer) Verify() error {
	level := rb.acquire()
	defer rb.lock.Release(level)

	var blks []*Block
	prev := nilIndex
	for idx := rb.head; idx != nilIndex; idx = rb.pool[idx].next {
		blk := &rb.pool[idx]
		if blk.prev != prev {
			return fmt.Errorf("block %d: broken link", idx)
		}
		if blk.Status() == StatusUnused {
			return fmt.Errorf("block %d: unused block in live list", idx)
		}
		if blk.size < 1 || blk.offset < 0 || blk.end() > len(rb.arena) {
			return fmt.Errorf("block %d: region [%d, %d) out of arena", idx, blk.offset, blk.end())
		}
		for _, b := range blks {
			if blk.offset < b.end() && b.offset < blk.end() {
				return fmt.Errorf("block %d: region [%d, %d) overlaps [%d, %d)",
					idx, blk.offset, blk.end(), b.offset, b.end())
			}
		}
		if len(blks) >= len(rb.pool) {
			return fmt.Errorf("live list longer than pool")
		}
		blks = append(blks, blk)
		prev = idx
	}
	if prev != rb.tail {
		return fmt.Errorf("tail mismatch")
	}
	if len(blks) != rb.live {
		return fmt.Errorf("live count %d, listed %d", rb.live, len(blks))
	}
	var unused int
	for n := range rb.pool {
		if rb.pool[n].Status() == StatusUnused {
			unused++
		}
	}
	if unused+rb.live != len(rb.pool) {
		return fmt.Errorf("%d unused blocks with %d live in pool of %d", unused, rb.live, len(rb.pool))
	}
	return nil
}
