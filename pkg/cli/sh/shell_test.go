package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ringblk/pkg/env"
)

func newTestShell(t *testing.T) *Shell {
	conf := env.NewConfig()
	conf.BufferSize, conf.BlockMax = 32, 2
	s := &Shell{Config: conf}
	require.NoError(t, s.Reset())
	return s
}

func TestParseData(t *testing.T) {
	data, err := parseData("0x0102ff")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 0xff}, data)
	data, err = parseData("abc")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), data)
	_, err = parseData("0xzz")
	require.Error(t, err)
}

func TestTracking(t *testing.T) {
	s := newTestShell(t)
	blk, err := s.Buffer.Alloc(8)
	require.NoError(t, err)
	id := s.track(blk)
	require.Equal(t, 1, id)
	require.Equal(t, id, s.track(blk))
	require.Equal(t, "#1 [0, 8) inited", FormatBlock(id, blk))

	found, err := s.block("1")
	require.NoError(t, err)
	require.True(t, found == blk)
	_, err = s.block("2")
	require.Error(t, err)
	_, err = s.block("x")
	require.Error(t, err)

	s.untrack(blk)
	_, err = s.block("1")
	require.Error(t, err)
}

func TestReset(t *testing.T) {
	s := newTestShell(t)
	old := s.Buffer
	s.Config.BlockMax = 0
	require.Error(t, s.Reset())
	require.True(t, old == s.Buffer)

	s.Config.BlockMax = 4
	require.NoError(t, s.Reset())
	require.Equal(t, 4, s.Buffer.BlockMax())
	require.Panics(t, func() { old.Destroy() }, "previous buffer destroyed")
}
