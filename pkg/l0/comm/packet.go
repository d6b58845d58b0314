package comm

import (
	"io"
	"time"
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a randome packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

const (
	codeMask    byte = 0x8f
	lenMask     byte = 0x70
	lenExtended byte = 7
	maxDataLen       = 0x7f
)

// Packet contains the information of a parsed packet.
// When delivered from a buffer, Data points into the arena and is only
// valid until the block is freed.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// FrameLen gets the encoded length of a frame carrying dataLen bytes.
func FrameLen(dataLen int) int {
	if dataLen >= int(lenExtended) {
		return dataLen + 3
	}
	return dataLen + 2
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	b := make([]byte, len(p.Data)+3)
	b[0], b[1] = byte(p.Seq), (p.Code & codeMask)
	if l := byte(len(p.Data)); l >= lenExtended {
		b[1] |= lenMask
		b[2] = l
		copy(b[3:], p.Data)
	} else {
		b = b[:l+2]
		b[1] |= (l << 4) & lenMask
		copy(b[2:], p.Data)
	}
	return b
}

// WriteTo writes encoded bytes.
func (p *Packet) WriteTo(w io.Writer) (n int, err error) {
	head := []byte{byte(p.Seq), p.Code & codeMask, byte(len(p.Data))}
	if head[2] < lenExtended {
		head[1] |= (head[2] << 4) & lenMask
		head = head[:2]
	} else {
		head[1] |= lenMask
	}
	if n, err = w.Write(head); err != nil {
		return
	}
	if l := byte(len(p.Data)); l > 0 {
		var n1 int
		n1, err = w.Write(p.Data[:l])
		n += n1
	}
	return
}

// frameSize gets the total size of the frame at the beginning of data,
// or 0 if the header is incomplete.
func frameSize(data []byte) int {
	if len(data) < 2 {
		return 0
	}
	dataLen := (data[1] & lenMask) >> 4
	if dataLen != lenExtended {
		return int(dataLen) + 2
	}
	if len(data) < 3 {
		return 0
	}
	return int(data[2]) + 3
}

// DecodePacket decodes a single stored frame without copying.
// ErrAbortedFrame is returned for frames interrupted by a resync.
func DecodePacket(frame []byte) (*Packet, error) {
	size := frameSize(frame)
	if size == 0 {
		return nil, &FrameError{Reason: "truncated header"}
	}
	if size != len(frame) {
		return nil, &FrameError{Reason: "length mismatch"}
	}
	seq := PacketSeq(frame[0])
	if !seq.IsValid() {
		return nil, ErrAbortedFrame
	}
	pkt := &Packet{Seq: seq, Code: frame[1] & codeMask}
	start := 2
	if (frame[1]&lenMask)>>4 == lenExtended {
		start = 3
	}
	if start < size {
		pkt.Data = frame[start:size:size]
	}
	return pkt, nil
}

// IsAborted checks if a stored frame was interrupted by a resync.
func IsAborted(frame []byte) bool {
	return len(frame) > 0 && !PacketSeq(frame[0]).IsValid()
}

// DecodeFrames decodes concatenated frames, skipping aborted ones.
// It stops at the first error returned by fn.
func DecodeFrames(data []byte, fn func(*Packet) error) error {
	for offset := 0; offset < len(data); {
		size := frameSize(data[offset:])
		if size == 0 || offset+size > len(data) {
			return &FrameError{Offset: offset, Reason: "truncated"}
		}
		pkt, err := DecodePacket(data[offset : offset+size])
		offset += size
		if err == ErrAbortedFrame {
			continue
		}
		if err != nil {
			return err
		}
		if err = fn(pkt); err != nil {
			return err
		}
	}
	return nil
}
