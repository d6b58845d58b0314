package rbb

import "fmt"

// BlockQueue is a run of consecutive blocks taken by GetQueue. The regions
// are contiguous in the arena so the whole queue can be handed to e.g. a DMA
// engine as a single range.
type BlockQueue struct {
	rb     *Buffer
	first  int32
	num    int
	offset int
	size   int
}

// Len gets the total length of the data in the queue.
func (q BlockQueue) Len() int {
	return q.size
}

// NumBlocks gets the number of blocks in the queue.
func (q BlockQueue) NumBlocks() int {
	return q.num
}

// Bytes returns the contiguous region covered by the queue.
func (q BlockQueue) Bytes() []byte {
	if q.num == 0 {
		return nil
	}
	end := q.offset + q.size
	return q.rb.arena[q.offset:end:end]
}

// Blocks returns the blocks in the queue, oldest first.
func (q BlockQueue) Blocks() []*Block {
	blks := make([]*Block, 0, q.num)
	for idx, n := q.first, 0; n < q.num && idx != nilIndex; n++ {
		blks = append(blks, &q.rb.pool[idx])
		idx = q.rb.pool[idx].next
	}
	return blks
}

// GetQueue takes consecutive ready blocks starting from the oldest one,
// as long as they are contiguous in the arena and the total length doesn't
// exceed maxLen. The oldest block is always taken if it's ready, even if it
// alone is longer than maxLen.
// It returns false if the oldest block is not ready.
func (rb *Buffer) GetQueue(maxLen int) (q BlockQueue, ok bool) {
	level := rb.acquire()
	defer rb.lock.Release(level)

	q.rb, q.first = rb, rb.head
	for idx := rb.head; idx != nilIndex; idx = rb.pool[idx].next {
		blk := &rb.pool[idx]
		if blk.Status() != StatusPut {
			break
		}
		if q.num > 0 && (blk.offset != q.offset+q.size || q.size+blk.size > maxLen) {
			break
		}
		if q.num == 0 {
			q.offset = blk.offset
		}
		q.size += blk.size
		q.num++
		blk.setStatus(StatusGot)
	}
	return q, q.num > 0
}

// NextQueueLen gets the data length GetQueue would take without limit,
// the state of the buffer is not changed.
func (rb *Buffer) NextQueueLen() int {
	level := rb.acquire()
	defer rb.lock.Release(level)

	var size, end int
	for idx := rb.head; idx != nilIndex; idx = rb.pool[idx].next {
		blk := &rb.pool[idx]
		if blk.Status() != StatusPut || (size > 0 && blk.offset != end) {
			break
		}
		size += blk.size
		end = blk.end()
	}
	return size
}

// FreeQueue frees all the blocks taken by GetQueue.
// Blocks of a queue must not be freed individually.
func (rb *Buffer) FreeQueue(q BlockQueue) {
	if q.num == 0 {
		return
	}
	if q.rb != rb {
		panic("rbb: queue doesn't belong to this buffer")
	}
	level := rb.acquire()
	defer rb.lock.Release(level)

	idx, offset := q.first, q.offset
	for n := 0; n < q.num; n++ {
		if idx == nilIndex {
			panic("rbb: queue truncated")
		}
		blk := &rb.pool[idx]
		if blk.offset != offset {
			panic(fmt.Sprintf("rbb: queue broken at block %d", n))
		}
		offset += blk.size
		idx = blk.next
		rb.freeLocked(blk)
	}
}
