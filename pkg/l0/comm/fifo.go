package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ringblk/pkg/rbb"
)

// StateNotifier is called when packet stream state changed.
type StateNotifier interface {
	StateChanged(context.Context, SyncState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, SyncState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state SyncState) {
	f(ctx, state)
}

// FIFO send/recv packets. Received frames are stored into Buffer and
// Signal is posted each time a block is put.
type FIFO struct {
	ReadWriter  io.ReadWriter
	Notifier    StateNotifier
	Signal      rbb.Signal
	Timeout     time.Duration
	ReadTimeout bool // set to true if ReadWriter already supports timeout with Read

	seq     PacketSeq
	state   SyncState
	lock    sync.RWMutex
	dropped uint64

	syncTimer <-chan time.Time
	parser    Parser
}

// NewFIFO creates a FIFO receiving into buf.
func NewFIFO(rw io.ReadWriter, buf *rbb.Buffer) *FIFO {
	if buf == nil {
		panic("comm: nil buffer")
	}
	return &FIFO{
		ReadWriter: rw,
		Signal:     rbb.NewSignal(),
		Timeout:    100 * time.Millisecond,
		seq:        NewPacketSeq(),
		parser:     Parser{Buffer: buf},
	}
}

// Buffer gets the buffer frames are received into.
func (f *FIFO) Buffer() *rbb.Buffer {
	return f.parser.Buffer
}

// NewDispatcher creates a Dispatcher consuming frames from this FIFO.
func (f *FIFO) NewDispatcher(h PacketHandler) *Dispatcher {
	d := NewDispatcher(f.parser.Buffer, h)
	d.Signal = f.Signal
	return d
}

// Dropped gets the number of frames discarded for a full buffer.
func (f *FIFO) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}

// State gets the state.
func (f *FIFO) State() SyncState {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.state
}

// Send sends a packet.
func (f *FIFO) Send(pkt *Packet) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.state.IsReady() {
		return ErrNotReady
	}
	pkt.Seq = f.seq
	if _, err := pkt.WriteTo(f.ReadWriter); err != nil {
		return err
	}
	f.seq = f.seq.Next()
	return nil
}

// Run processes the FIFO in the background.
func (f *FIFO) Run(ctx context.Context) error {
	err := f.applyParseResult(ctx, f.parser.Reset())
	if err != nil {
		return err
	}

	if f.ReadTimeout {
		buf := make([]byte, 1)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.syncTimer:
				if err = f.applyParseResult(ctx, f.parser.Timeout()); err != nil {
					return err
				}
			default:
				n, err := f.ReadWriter.Read(buf)
				if err != nil {
					if !os.IsTimeout(err) {
						return err
					}
					err = f.applyParseResult(ctx, f.parser.Timeout())
				} else if n == 0 {
					err = f.applyParseResult(ctx, f.parser.Timeout())
				} else {
					err = f.applyParseResult(ctx, f.parser.Parse(buf[0]))
				}
				if err != nil {
					return err
				}
			}
		}
	}

	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, byteCh, errCh)
	for {
		select {
		case b := <-byteCh:
			if err = f.applyParseResult(ctx, f.parser.Parse(b)); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-f.syncTimer:
			if err = f.applyParseResult(ctx, f.parser.Timeout()); err != nil {
				return err
			}
		}
	}
}

func (f *FIFO) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 1)
	for {
		_, err := f.ReadWriter.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (f *FIFO) applyParseResult(ctx context.Context, pr ParseResult) (err error) {
	var notifier StateNotifier
	f.lock.Lock()
	if f.state != pr.State {
		f.state = pr.State
		notifier = f.Notifier
	}
	if pr.Sync != 0 {
		_, err = f.ReadWriter.Write([]byte{pr.Sync, byte(f.seq)})
	}
	f.lock.Unlock()
	if err != nil {
		return
	}

	if f.ReadTimeout {
		if pr.Sync == syncREQ {
			f.syncTimer = time.After(f.Timeout)
		} else {
			f.syncTimer = nil
		}
	} else {
		switch pr.WhatAboutTimer() {
		case TimerRestart:
			f.syncTimer = time.After(f.Timeout)
		case TimerStop:
			f.syncTimer = nil
		}
	}

	if notifier != nil {
		notifier.StateChanged(ctx, pr.State)
	}
	if pr.Dropped {
		n := atomic.AddUint64(&f.dropped, 1)
		glog.V(2).Infof("frame dropped, buffer full (%d dropped)", n)
	}
	if pr.Put {
		f.Signal.Post()
	}
	return
}
