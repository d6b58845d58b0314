// Package stream carries packets over a byte stream.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// DefaultMaxPacketSize limits the size accepted by ReadPacket.
const DefaultMaxPacketSize = 1 << 20

// ReadWriter implements sink.PacketReadWriter.
type ReadWriter struct {
	Stream        io.ReadWriter
	MaxPacketSize int

	header [4]byte
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{Stream: s, MaxPacketSize: DefaultMaxPacketSize}
}

// NewWriter creates a ReadWriter only used for writing.
func NewWriter(w io.Writer) *ReadWriter {
	return New(writeOnly{w})
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(p.Stream, header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if max := p.MaxPacketSize; max > 0 && int64(size) > int64(max) {
		return nil, fmt.Errorf("packet too large: %d", size)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p.Stream, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
// Header and payload are written with a single vectored write when the
// stream supports it.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	binary.LittleEndian.PutUint32(p.header[:], uint32(len(pkt)))
	bufs := net.Buffers{p.header[:], pkt}
	_, err := bufs.WriteTo(p.Stream)
	return err
}

// Close closes the stream if it's an io.Closer.
func (p *ReadWriter) Close() error {
	if c, ok := p.Stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type writeOnly struct {
	io.Writer
}

func (w writeOnly) Read([]byte) (int, error) {
	return 0, io.EOF
}

func (w writeOnly) Close() error {
	if c, ok := w.Writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
