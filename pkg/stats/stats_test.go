package stats

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/ringblk/pkg/rbb"
	"github.com/robotalks/ringblk/pkg/sink"
)

func newTestBuffer(t *testing.T) *rbb.Buffer {
	buf := rbb.Init(make([]byte, 100), make([]rbb.Block, 4))
	a, err := buf.Alloc(10)
	require.NoError(t, err)
	b, err := buf.Alloc(30)
	require.NoError(t, err)
	_, err = buf.Alloc(20)
	require.NoError(t, err)
	buf.Put(a)
	buf.Put(b)
	require.NotNil(t, buf.Get())
	_, err = buf.Alloc(50)
	require.Equal(t, rbb.ErrNoSpace, err)
	return buf
}

func TestSnapshot(t *testing.T) {
	at := time.Unix(100, 5)
	s := FromBuffer(newTestBuffer(t), "r1", 7, at)
	require.Equal(t, int64(100), s.Capacity)
	require.Equal(t, int64(4), s.BlockMax)
	require.Equal(t, int64(3), s.Live)
	require.Equal(t, int64(1), s.Inited)
	require.Equal(t, int64(1), s.Put)
	require.Equal(t, int64(1), s.Got)
	require.Equal(t, int64(60), s.UsedBytes)
	require.Equal(t, uint64(3), s.AllocOk)
	require.Equal(t, uint64(1), s.AllocNoSpace)
	require.Equal(t, 60.0, s.Usage())
	require.True(t, at.Equal(s.Time()))

	data, err := s.Encode()
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, s.Summary(), decoded.Summary())
	require.Equal(t, "r1", decoded.GetSource())
	require.Equal(t, uint64(7), decoded.GetDroppedFrames())

	_, err = Decode([]byte{0xff})
	require.Error(t, err)
}

func TestReporter(t *testing.T) {
	pktCh := make(chan []byte, 4)
	r := &Reporter{
		Buffer:   newTestBuffer(t),
		Writer:   sink.WriterFunc(func(pkt []byte) error { pktCh <- pkt; return nil }),
		Interval: 10 * time.Millisecond,
		Source:   "r1",
		Dropped:  func() uint64 { return 2 },
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case pkt := <-pktCh:
		s, err := Decode(pkt)
		require.NoError(t, err)
		require.Equal(t, "r1", s.Source)
		require.Equal(t, uint64(2), s.DroppedFrames)
	case <-time.After(time.Second):
		t.Fatal("no report")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewCollector(newTestBuffer(t), func() uint64 { return 9 }, prometheus.Labels{"source": "r1"}))
	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				if l.GetName() != "source" {
					name += "/" + l.GetValue()
				}
			}
			if g := m.GetGauge(); g != nil {
				values[name] = g.GetValue()
			} else {
				values[name] = m.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, map[string]float64{
		"rbb_capacity_bytes":       100,
		"rbb_block_max":            4,
		"rbb_used_bytes":           60,
		"rbb_blocks/inited":        1,
		"rbb_blocks/put":           1,
		"rbb_blocks/got":           1,
		"rbb_alloc_total/ok":       3,
		"rbb_alloc_total/no_block": 0,
		"rbb_alloc_total/no_space": 1,
		"rbb_dropped_frames_total": 9,
	}, values)
}
