package comm

import "github.com/robotalks/ringblk/pkg/rbb"

// Parser parses bytes received and stores frames into a ring block buffer.
type Parser struct {
	Buffer *rbb.Buffer

	peerSeq PacketSeq
	state   parseState

	// the frame being received.
	seq     PacketSeq
	code    byte
	block   *rbb.Block
	frame   []byte
	recvLen int
	discard int
}

// SyncState indicates the state of communication.
type SyncState int

const (
	// SyncStateSyncing means the communication is not synchronized.
	SyncStateSyncing SyncState = 0
	// SyncStateReady means the communication is synchronized and ready for packets.
	SyncStateReady SyncState = 0x01
	// SyncStateReceiving means there's on-going communication for syncing or a packet.
	SyncStateReceiving SyncState = 0x02
)

// IsReady indicates if the communication is ready for packets.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving indicates if it's in the middle for syncing or receiving a packet.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

// TimerAction defines what to do with timer.
type TimerAction int

const (
	// TimerNoChange indicates keep the timer as-is.
	TimerNoChange TimerAction = iota
	// TimerRestart to restart the timer.
	TimerRestart
	// TimerStop to stop/cancel the timer.
	TimerStop
)

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	Sync  byte
	State SyncState
	// Put is set when a block was put into the buffer, including a block
	// holding an aborted frame which consumers must still free.
	Put bool
	// Dropped is set when a frame is discarded for no block or space.
	Dropped bool
}

// WhatAboutTimer decides what to do with timer.
func (r ParseResult) WhatAboutTimer() TimerAction {
	if r.State.IsReceiving() || r.Sync == syncREQ {
		return TimerRestart
	}
	if r.State.IsReady() {
		return TimerStop
	}
	return TimerNoChange
}

type parseState int

const (
	stateSyncAck    parseState = iota // sync req sent, waiting for syncACK
	stateSyncReqSeq                   // waiting for sync seq after syncREQ
	stateSyncAckSeq                   // waiting for sync seq after syncACK
	stateMsgSeq                       // waiting for message seq
	stateMsgAckSeq                    // recv ack in MsgSeq, validate seq
	stateMsgCode                      // waiting for message code
	stateMsgLen                       // waiting for message length
	stateMsgData                      // waiting for message data
)

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

// State gets the current sync state.
func (p *Parser) State() SyncState {
	if p.state == stateSyncAck {
		return SyncStateSyncing
	}
	if p.state == stateMsgSeq {
		return SyncStateReady
	}
	if p.state > stateMsgSeq {
		return SyncStateReady | SyncStateReceiving
	}
	return SyncStateSyncing | SyncStateReceiving
}

// Reset resets the internal state of parser.
func (p *Parser) Reset() (pr ParseResult) {
	pr.Sync = p.resync(&pr)
	pr.State = p.State()
	return
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	pr.Sync = p.parseByte(b, &pr)
	pr.State = p.State()
	return
}

// Timeout notifies the parser timer expires.
func (p *Parser) Timeout() (pr ParseResult) {
	if p.state != stateMsgSeq {
		pr.Sync = p.resync(&pr)
	}
	pr.State = p.State()
	return
}

func (p *Parser) parseByte(b byte, pr *ParseResult) (syncCmd byte) {
	switch p.state {
	case stateSyncAck:
		switch b {
		case syncREQ:
			p.state = stateSyncReqSeq
		case syncACK:
			p.state = stateSyncAckSeq
		}
	case stateSyncReqSeq:
		if seq := PacketSeq(b); seq.IsValid() {
			p.peerSeq, p.state = seq, stateMsgSeq
			return syncACK
		}
		return p.resync(pr)
	case stateSyncAckSeq:
		if seq := PacketSeq(b); seq.IsValid() {
			p.peerSeq, p.state = seq, stateMsgSeq
			return
		}
		return p.resync(pr)
	case stateMsgSeq:
		if b == syncREQ {
			p.state = stateSyncReqSeq
			return
		}
		if b == syncACK {
			p.state = stateMsgAckSeq
			return
		}
		if b != byte(p.peerSeq) {
			return p.resync(pr)
		}
		p.seq = p.peerSeq
		p.peerSeq = p.peerSeq.Next()
		p.state = stateMsgCode
	case stateMsgAckSeq:
		if b != byte(p.peerSeq) {
			return p.resync(pr)
		}
		p.state = stateMsgSeq
	case stateMsgCode:
		p.code = b
		switch dataLen := (b >> 4) & 7; dataLen {
		case lenExtended:
			p.state = stateMsgLen
		default:
			p.begin(pr, int(dataLen)+2, byte(p.seq), b)
		}
	case stateMsgLen:
		if b > maxDataLen {
			return p.resync(pr)
		}
		p.begin(pr, int(b)+3, byte(p.seq), p.code, b)
	case stateMsgData:
		if p.block == nil {
			if p.discard--; p.discard <= 0 {
				p.state = stateMsgSeq
			}
			return
		}
		p.frame[p.recvLen] = b
		p.recvLen++
		if p.recvLen >= len(p.frame) {
			p.frameReady(pr)
		}
	}
	return
}

// begin allocates the block for a frame of size bytes and stores the
// header. The frame is discarded when the buffer is out of blocks or space.
func (p *Parser) begin(pr *ParseResult, size int, header ...byte) {
	blk, err := p.Buffer.Alloc(size)
	if err != nil {
		pr.Dropped = true
		if p.discard = size - len(header); p.discard > 0 {
			p.state = stateMsgData
		} else {
			p.state = stateMsgSeq
		}
		return
	}
	p.block, p.frame = blk, blk.Bytes()
	p.recvLen = copy(p.frame, header)
	if p.recvLen >= size {
		p.frameReady(pr)
		return
	}
	p.state = stateMsgData
}

func (p *Parser) frameReady(pr *ParseResult) {
	p.Buffer.Put(p.block)
	p.block, p.frame = nil, nil
	p.state = stateMsgSeq
	pr.Put = true
}

func (p *Parser) resync(pr *ParseResult) byte {
	if p.block != nil {
		// the block can only move forward, so it's marked aborted and put.
		p.frame[0] = 0
		p.Buffer.Put(p.block)
		p.block, p.frame = nil, nil
		pr.Put = true
	}
	p.discard = 0
	p.state = stateSyncAck
	return syncREQ
}
