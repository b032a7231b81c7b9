package heap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingAssert captures failed assertions instead of panicking, so tests
// can observe what a corruption or misuse would have reported without
// crashing the test process the way defaultAssert does.
func recordingAssert(got *[]string) AssertFunc {
	return func(cond bool, format string, args ...interface{}) {
		if !cond {
			*got = append(*got, fmt.Sprintf(format, args...))
		}
	}
}

func TestAllocFreeRoundTrip(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))
	before := h.FreeBytes()

	b, ok := h.Alloc(100)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(b.Data), 100)
	for i := range b.Data {
		b.Data[i] = byte(i)
	}

	h.Free(b)
	require.Equal(t, before, h.FreeBytes())
	require.Equal(t, before, h.GetBiggestChunk())
}

func TestAllocSplitShrinksBiggestChunk(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))
	full := h.GetBiggestChunk()

	b, ok := h.Alloc(64)
	require.True(t, ok)
	require.Less(t, h.GetBiggestChunk(), full)

	h.Free(b)
	require.Equal(t, full, h.GetBiggestChunk())
}

// TestCoalesceAdjacentFrees allocates three adjacent blocks out of one pool
// and frees the middle one first, then its neighbors, checking that each
// Free merges with whatever neighbor is already free rather than only ever
// coalescing forward or only backward.
func TestCoalesceAdjacentFrees(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))
	full := h.GetBiggestChunk()

	a, ok := h.Alloc(64)
	require.True(t, ok)
	b, ok := h.Alloc(64)
	require.True(t, ok)
	c, ok := h.Alloc(64)
	require.True(t, ok)
	require.Less(t, h.GetBiggestChunk(), full)

	h.Free(b) // middle: no free neighbor yet
	h.Free(a) // merges forward into b's remains
	h.Free(c) // merges backward into the a+b remains

	require.Equal(t, full, h.GetBiggestChunk())
	require.Equal(t, full, h.FreeBytes())
}

func TestReallocGrowsAndPreservesContent(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))

	b, ok := h.Alloc(16)
	require.True(t, ok)
	copy(b.Data, []byte("hello"))

	nb, ok := h.Realloc(b, 200)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(nb.Data), 200)
	require.Equal(t, []byte("hello"), nb.Data[:5])
}

func TestReallocShrinkIsNoop(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))

	b, ok := h.Alloc(200)
	require.True(t, ok)
	nb, ok := h.Realloc(b, 16)
	require.True(t, ok)
	require.Same(t, b, nb)
}

func TestReallocZeroSizeFrees(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))
	full := h.FreeBytes()

	b, ok := h.Alloc(64)
	require.True(t, ok)
	require.Less(t, h.FreeBytes(), full)

	nb, ok := h.Realloc(b, 0)
	require.True(t, ok)
	require.Nil(t, nb)
	require.Equal(t, full, h.FreeBytes())
}

func TestTagAllocatedBlockSurvivesReallocAndWalk(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))

	b, ok := h.Alloc(16)
	require.True(t, ok)
	h.TagAllocatedBlock(b, "packet-pool")

	nb, ok := h.Realloc(b, 200) // moves to a new block; tag must follow
	require.True(t, ok)

	var tag interface{}
	h.Walk(func(bi BlockInfo) {
		if bi.Offset == nb.r.off && bi.Allocated {
			tag = bi.Tag
		}
	})
	require.Equal(t, "packet-pool", tag)
}

func TestWalkVisitsSentinelsAndBlocksInOrder(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 256))

	b, ok := h.Alloc(32)
	require.True(t, ok)

	var infos []BlockInfo
	h.Walk(func(bi BlockInfo) { infos = append(infos, bi) })

	require.True(t, len(infos) >= 3) // bottom sentinel, allocated block, free remainder, top sentinel
	require.True(t, infos[0].Allocated)
	require.Equal(t, 0, infos[0].Size)
	require.True(t, infos[len(infos)-1].Allocated)
	require.Equal(t, 0, infos[len(infos)-1].Size)

	found := false
	for _, bi := range infos {
		if bi.Allocated && bi.Size == 32 {
			found = true
		}
	}
	require.True(t, found)
	_ = b
}

// TestDoubleFreeAsserts verifies a second Free of the same block trips the
// "double free" assertion exactly once (the canary is untouched by the
// first Free, so only the allocated-bit check fails).
func TestDoubleFreeAsserts(t *testing.T) {
	var got []string
	h := New(recordingAssert(&got))
	h.AddPool(make([]byte, 256))

	b, ok := h.Alloc(32)
	require.True(t, ok)

	h.Free(b)
	h.Free(b)

	require.Len(t, got, 1)
	require.Contains(t, got[0], "double free")
}

// TestCorruptCanaryAsserts flips a byte inside a live block's canary word
// and checks Free reports it. This reaches into the unexported ref behind
// the Block handle, which only a same-package (white-box) test can do;
// there is no public API that lets a well-behaved caller corrupt a canary.
func TestCorruptCanaryAsserts(t *testing.T) {
	var got []string
	h := New(recordingAssert(&got))
	h.AddPool(make([]byte, 256))

	b, ok := h.Alloc(32)
	require.True(t, ok)
	b.r.p.buf[b.r.off] ^= 0xFF

	h.Free(b)

	require.Len(t, got, 1)
	require.Contains(t, got[0], "corrupt canary")
}

func TestMinFreeBytesSeenTracksLowWaterMark(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 1024))
	full := h.FreeBytes()

	a, ok := h.Alloc(256)
	require.True(t, ok)
	b, ok := h.Alloc(256)
	require.True(t, ok)
	low := h.FreeBytes()
	require.Less(t, low, full)

	h.Free(a)
	require.Equal(t, low, h.MinFreeBytesSeen()) // freeing never raises the low-water mark

	h.Free(b)
	require.Equal(t, low, h.MinFreeBytesSeen())
}

func TestAllocAcrossMultiplePools(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 128))
	h.AddPool(make([]byte, 128))

	// each pool's payload is 128-3*headerBytes == 56 bytes: one 32-byte
	// allocation consumes a whole pool's only free block outright (the
	// 24-byte remainder is below headerBytes+minBlock and can't be split),
	// so the second and later allocations must come from the other pool.
	var blocks []*Block
	for i := 0; i < 2; i++ {
		b, ok := h.Alloc(32)
		require.True(t, ok, "alloc %d should fit across the two pools", i)
		blocks = append(blocks, b)
	}
	_, ok := h.Alloc(32)
	require.False(t, ok, "both pools are now fully committed")

	for _, b := range blocks {
		h.Free(b)
	}
	require.Equal(t, 56, h.GetBiggestChunk())
}

func TestAllocFailsWhenExhausted(t *testing.T) {
	h := New(nil)
	h.AddPool(make([]byte, 128))

	_, ok := h.Alloc(1000)
	require.False(t, ok)
}
