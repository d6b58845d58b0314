// Package sink defines where the frames drained from a ring block buffer go.
package sink

import "io"

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
// The slice passed to WritePacket is only valid during the call.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// PacketWriteCloser is a PacketWriter which must be closed after use.
type PacketWriteCloser interface {
	PacketWriter
	io.Closer
}

// WriterFunc is the func form of PacketWriter.
type WriterFunc func([]byte) error

// WritePacket implements PacketWriter.
func (f WriterFunc) WritePacket(pkt []byte) error {
	return f(pkt)
}

// Discard drops every packet.
var Discard PacketWriter = WriterFunc(func([]byte) error { return nil })
