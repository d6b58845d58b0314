package comm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketSeq(t *testing.T) {
	for s := byte(0xff); s >= byte(0xf0); s-- {
		require.False(t, PacketSeq(s).IsValid())
		require.Equal(t, PacketSeq(1), PacketSeq(s).Next())
	}
	for s := byte(1); s < byte(0xf0); s++ {
		require.True(t, PacketSeq(s).IsValid())
		if s+1 < 0xf0 {
			require.Equal(t, PacketSeq(s+1), PacketSeq(s).Next())
		} else {
			require.Equal(t, PacketSeq(1), PacketSeq(s).Next())
		}
	}
	require.False(t, PacketSeq(0).IsValid())
	require.Equal(t, PacketSeq(1), PacketSeq(0).Next())
}

func TestPacket(t *testing.T) {
	testCases := []struct {
		name   string
		packet Packet
		expect []byte
	}{
		{"no data", Packet{Seq: PacketSeq(1), Code: 2}, []byte{1, 2}},
		{"small data", Packet{Seq: PacketSeq(1), Code: 2, Data: []byte{1}}, []byte{1, 0x12, 1}},
		{"large data", Packet{Seq: PacketSeq(1), Code: 2, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, []byte{1, 0x72, 7, 1, 2, 3, 4, 5, 6, 7}},
		{"event no data", Packet{Seq: PacketSeq(1), Code: 0x82}, []byte{1, 0x82}},
		{"event small data", Packet{Seq: PacketSeq(1), Code: 0x82, Data: []byte{1}}, []byte{1, 0x92, 1}},
		{"event large data", Packet{Seq: PacketSeq(1), Code: 0x82, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, []byte{1, 0xf2, 7, 1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.packet.Bytes())
			var buf bytes.Buffer
			n, err := tc.packet.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.Equal(t, len(tc.expect), n)
		})
	}
}

func TestFrameLen(t *testing.T) {
	for _, l := range []int{0, 1, 6, 7, 0x7f} {
		pkt := Packet{Seq: 1, Code: 2, Data: make([]byte, l)}
		require.Equal(t, len(pkt.Bytes()), FrameLen(l))
	}
}

func TestDecodePacket(t *testing.T) {
	pkt, err := DecodePacket([]byte{3, 0xf2, 7, 1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	require.Equal(t, &Packet{Seq: 3, Code: 0x82, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, pkt)

	pkt, err = DecodePacket([]byte{4, 0x02})
	require.NoError(t, err)
	require.Nil(t, pkt.Data)

	_, err = DecodePacket([]byte{0, 0x12, 1})
	require.Equal(t, ErrAbortedFrame, err)

	for _, frame := range [][]byte{nil, {1}, {1, 0x70}, {1, 0x12}, {1, 0x12, 1, 2}} {
		_, err = DecodePacket(frame)
		require.Error(t, err)
		require.IsType(t, &FrameError{}, err)
	}
}

func TestDecodeFrames(t *testing.T) {
	var data []byte
	data = append(data, (&Packet{Seq: 1, Code: 2}).Bytes()...)
	data = append(data, 0, 0x12, 9)
	data = append(data, (&Packet{Seq: 2, Code: 0x83, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}).Bytes()...)

	var pkts []*Packet
	err := DecodeFrames(data, func(pkt *Packet) error {
		pkts = append(pkts, pkt)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, pkts, 2)
	require.Equal(t, PacketSeq(1), pkts[0].Seq)
	require.Equal(t, byte(0x83), pkts[1].Code)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, pkts[1].Data)

	err = DecodeFrames(data[:len(data)-1], func(*Packet) error { return nil })
	require.Error(t, err)
	fe, ok := err.(*FrameError)
	require.True(t, ok)
	require.Equal(t, 5, fe.Offset)

	stop := errors.New("stop")
	require.Equal(t, stop, DecodeFrames(data, func(*Packet) error { return stop }))
}

func TestIsAborted(t *testing.T) {
	require.True(t, IsAborted([]byte{0, 0x02}))
	require.False(t, IsAborted([]byte{1, 0x02}))
	require.False(t, IsAborted(nil))
}
