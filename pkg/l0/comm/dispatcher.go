package comm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ringblk/pkg/rbb"
)

// PacketHandler handles received packets.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// Dispatcher consumes frames from a Buffer and hands decoded packets to
// Handler. Packet.Data aliases the block and is only valid inside
// HandlePacket.
type Dispatcher struct {
	Buffer       *rbb.Buffer
	Handler      PacketHandler
	Signal       rbb.Signal
	PollInterval time.Duration

	errors uint64
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(buf *rbb.Buffer, h PacketHandler) *Dispatcher {
	return &Dispatcher{
		Buffer:       buf,
		Handler:      h,
		PollInterval: 10 * time.Millisecond,
	}
}

// Errors gets the number of blocks which couldn't be decoded.
func (d *Dispatcher) Errors() uint64 {
	return atomic.LoadUint64(&d.errors)
}

// Dispatch handles all frames ready in Buffer and returns the number of
// blocks consumed.
func (d *Dispatcher) Dispatch(ctx context.Context) (n int) {
	for blk := d.Buffer.Get(); blk != nil; blk = d.Buffer.Get() {
		n++
		pkt, err := DecodePacket(blk.Bytes())
		switch {
		case err == ErrAbortedFrame:
			glog.V(2).Infof("skip aborted frame at %d", blk.Offset())
		case err != nil:
			atomic.AddUint64(&d.errors, 1)
			glog.Warningf("decode frame at %d: %v", blk.Offset(), err)
		case d.Handler != nil:
			d.Handler.HandlePacket(ctx, pkt)
		}
		d.Buffer.Free(blk)
	}
	return
}

// Run dispatches until ctx is done. It waits on Signal between rounds, or
// polls every PollInterval when Signal is nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.Dispatch(ctx)
		if !d.Signal.Wait(ctx, d.PollInterval) {
			return ctx.Err()
		}
	}
}
