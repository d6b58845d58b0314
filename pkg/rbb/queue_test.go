package rbb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func putAll(rb *Buffer, blks ...*Block) {
	for _, blk := range blks {
		rb.Put(blk)
	}
}

func TestGetQueueContiguous(t *testing.T) {
	rb := newTestBuffer(100, 4)
	a, b, c := mustAlloc(t, rb, 10), mustAlloc(t, rb, 20), mustAlloc(t, rb, 30)
	copy(a.Bytes(), "a")
	copy(b.Bytes(), "b")
	copy(c.Bytes(), "c")
	putAll(rb, a, b, c)
	require.Equal(t, 60, rb.NextQueueLen())

	q, ok := rb.GetQueue(100)
	require.True(t, ok)
	require.Equal(t, 3, q.NumBlocks())
	require.Equal(t, 60, q.Len())
	require.Equal(t, []*Block{a, b, c}, q.Blocks())
	data := q.Bytes()
	require.Len(t, data, 60)
	require.Equal(t, byte('a'), data[0])
	require.Equal(t, byte('b'), data[10])
	require.Equal(t, byte('c'), data[30])
	for _, blk := range q.Blocks() {
		require.Equal(t, StatusGot, blk.Status())
	}
	require.Equal(t, 0, rb.NextQueueLen())

	rb.FreeQueue(q)
	require.Equal(t, 0, rb.Stats().Live)
	require.NoError(t, rb.Verify())
}

func TestGetQueueLimits(t *testing.T) {
	testCases := []struct {
		name     string
		maxLen   int
		expected int
		size     int
	}{
		{"partial", 35, 2, 30},
		{"exact", 60, 3, 60},
		{"oversized head", 5, 1, 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rb := newTestBuffer(100, 4)
			putAll(rb, mustAlloc(t, rb, 10), mustAlloc(t, rb, 20), mustAlloc(t, rb, 30))
			q, ok := rb.GetQueue(tc.maxLen)
			require.True(t, ok)
			require.Equal(t, tc.expected, q.NumBlocks())
			require.Equal(t, tc.size, q.Len())
			rb.FreeQueue(q)
			require.NoError(t, rb.Verify())
		})
	}
}

func TestGetQueueStopsAtInited(t *testing.T) {
	rb := newTestBuffer(100, 4)
	a, b, c := mustAlloc(t, rb, 10), mustAlloc(t, rb, 10), mustAlloc(t, rb, 10)
	putAll(rb, a, c)
	require.Equal(t, 10, rb.NextQueueLen())
	q, ok := rb.GetQueue(100)
	require.True(t, ok)
	require.Equal(t, []*Block{a}, q.Blocks())

	_, ok = rb.GetQueue(100)
	require.False(t, ok, "head is got")
	rb.FreeQueue(q)

	_, ok = rb.GetQueue(100)
	require.False(t, ok, "head is inited")
	rb.Put(b)
	q, ok = rb.GetQueue(100)
	require.True(t, ok)
	require.Equal(t, []*Block{b, c}, q.Blocks())
	rb.FreeQueue(q)
}

func TestGetQueueStopsAtWrap(t *testing.T) {
	rb := newTestBuffer(100, 4)
	a, b := mustAlloc(t, rb, 40), mustAlloc(t, rb, 50)
	rb.Put(a)
	mustGet(t, rb, a)
	rb.Free(a)
	c := mustAlloc(t, rb, 30)
	require.Equal(t, 0, c.Offset())
	putAll(rb, b, c)

	require.Equal(t, 50, rb.NextQueueLen())
	q, ok := rb.GetQueue(100)
	require.True(t, ok)
	require.Equal(t, []*Block{b}, q.Blocks())
	rb.FreeQueue(q)

	q, ok = rb.GetQueue(100)
	require.True(t, ok)
	require.Equal(t, []*Block{c}, q.Blocks())
	rb.FreeQueue(q)
	require.Equal(t, 0, rb.Stats().Live)
}

func TestFreeQueueBroken(t *testing.T) {
	rb := newTestBuffer(100, 4)
	a, b := mustAlloc(t, rb, 10), mustAlloc(t, rb, 10)
	putAll(rb, a, b)
	q, ok := rb.GetQueue(100)
	require.True(t, ok)
	rb.Free(a)
	require.Panics(t, func() { rb.FreeQueue(q) })

	empty, ok := rb.GetQueue(100)
	require.False(t, ok)
	require.Nil(t, empty.Bytes())
	rb.FreeQueue(empty)

	other := newTestBuffer(100, 1)
	putAll(other, mustAlloc(t, other, 1))
	oq, ok := other.GetQueue(1)
	require.True(t, ok)
	require.Panics(t, func() { rb.FreeQueue(oq) })
}
