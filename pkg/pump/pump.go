// Package pump drains a ring block buffer into a sink.
package pump

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ringblk/pkg/rbb"
	"github.com/robotalks/ringblk/pkg/sink"
)

// Default intervals.
const (
	DefaultPollInterval  = 10 * time.Millisecond
	DefaultRetryInterval = time.Second
)

// Pump is the consumer of a Buffer writing blocks into Writer.
//
// With MaxBatch > 0 consecutive blocks contiguous in the arena are taken as
// a rbb.BlockQueue of up to MaxBatch bytes and written in a single call,
// otherwise every block is written on its own.
// Blocks are freed only after being written: when Writer fails, taken
// blocks stay pending and are written first in the next Drain.
type Pump struct {
	Buffer        *rbb.Buffer
	Writer        sink.PacketWriter
	Signal        rbb.Signal
	MaxBatch      int
	PollInterval  time.Duration
	RetryInterval time.Duration
	// Skip drops a block without writing if returns true, per block mode only.
	Skip func([]byte) bool

	pendingBlk   *rbb.Block
	pendingQueue rbb.BlockQueue

	packets     uint64
	bytes       uint64
	skipped     uint64
	writeErrors uint64
}

// Counters of a Pump.
type Counters struct {
	Packets     uint64
	Bytes       uint64
	Skipped     uint64
	WriteErrors uint64
}

// New creates a Pump.
func New(buf *rbb.Buffer, w sink.PacketWriter) *Pump {
	return &Pump{
		Buffer:        buf,
		Writer:        w,
		PollInterval:  DefaultPollInterval,
		RetryInterval: DefaultRetryInterval,
	}
}

// Counters gets the counters.
func (p *Pump) Counters() Counters {
	return Counters{
		Packets:     atomic.LoadUint64(&p.packets),
		Bytes:       atomic.LoadUint64(&p.bytes),
		Skipped:     atomic.LoadUint64(&p.skipped),
		WriteErrors: atomic.LoadUint64(&p.writeErrors),
	}
}

// Pending indicates blocks are taken but not written yet.
func (p *Pump) Pending() bool {
	return p.pendingBlk != nil || p.pendingQueue.NumBlocks() > 0
}

// Drain writes all ready blocks and returns the number of blocks written.
// It stops at the first write error.
func (p *Pump) Drain() (n int, err error) {
	for {
		if !p.Pending() && !p.take() {
			return
		}
		var written int
		if written, err = p.flush(); err != nil {
			atomic.AddUint64(&p.writeErrors, 1)
			return
		}
		n += written
	}
}

// take gets the next block or queue from Buffer into pending.
func (p *Pump) take() bool {
	if p.MaxBatch > 0 {
		q, ok := p.Buffer.GetQueue(p.MaxBatch)
		if ok {
			p.pendingQueue = q
		}
		return ok
	}
	for {
		blk := p.Buffer.Get()
		if blk == nil {
			return false
		}
		if p.Skip != nil && p.Skip(blk.Bytes()) {
			atomic.AddUint64(&p.skipped, 1)
			p.Buffer.Free(blk)
			continue
		}
		p.pendingBlk = blk
		return true
	}
}

func (p *Pump) flush() (int, error) {
	if blk := p.pendingBlk; blk != nil {
		if err := p.Writer.WritePacket(blk.Bytes()); err != nil {
			return 0, err
		}
		p.pendingBlk = nil
		atomic.AddUint64(&p.bytes, uint64(blk.Len()))
		p.Buffer.Free(blk)
		atomic.AddUint64(&p.packets, 1)
		return 1, nil
	}
	q := p.pendingQueue
	if err := p.Writer.WritePacket(q.Bytes()); err != nil {
		return 0, err
	}
	p.pendingQueue = rbb.BlockQueue{}
	glog.V(2).Infof("pump: %d blocks, %d bytes", q.NumBlocks(), q.Len())
	atomic.AddUint64(&p.bytes, uint64(q.Len()))
	p.Buffer.FreeQueue(q)
	atomic.AddUint64(&p.packets, uint64(q.NumBlocks()))
	return q.NumBlocks(), nil
}

// Run implements Runnable.
func (p *Pump) Run(ctx context.Context) error {
	for {
		_, err := p.Drain()
		wait := p.PollInterval
		if err != nil {
			glog.Warningf("pump write: %v", err)
			wait = p.RetryInterval
			if wait <= 0 {
				wait = DefaultRetryInterval
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if !p.Signal.Wait(ctx, wait) {
			return ctx.Err()
		}
	}
}
