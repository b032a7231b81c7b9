// Package heap implements the power-of-two binned best-effort allocator
// from spec.md §4.A: boundary-tagged blocks across one or more
// non-contiguous pools, 14 free-list bins indexed by payload size, and a
// canary word in every header to catch corruption and double-free. It has
// no dependency on package kernel (spec.md §2 "A is independent and may be
// used to allocate threads, stacks, and context buffers dynamically"); a
// caller that wants Assert-style fault reporting wires AssertFunc to
// kernel.Assert itself.
package heap

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mneedes/gomos/list"
)

const (
	// headerBytes is canary, size-of-previous, size — one machine word (8
	// bytes here) each, per spec.md §4.A's byte layout.
	headerBytes = 24

	numBins    = 14
	minBinSize = 1 << 4  // bin 0 starts at 2^4
	maxBinSize = 1 << 17 // bin 13 catches everything at or above this

	alignment = 8
	minBlock  = 16 // must hold a free-list payload's bookkeeping

	allocatedBit = uint64(1)

	canaryMagic = uint64(0x5AFEC0DE1337BEEF)
)

// AssertFunc reports a category (i) programmer error (spec.md §7): bad
// canary, double free, a pool too small for its sentinels. The default implementation
// panics; wire a kernel.Assert-backed closure to route it through the
// scheduler's TIME_TO_STOP path instead.
type AssertFunc func(cond bool, format string, args ...interface{})

func defaultAssert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("heap: "+format, args...))
	}
}

// pool is one contiguous backing region, bottom/top sentinels included.
type pool struct {
	buf  []byte
	next *pool
}

// ref identifies one block: which pool, and the byte offset of its header.
type ref struct {
	p   *pool
	off int
}

// Heap is a set of pools sharing one family of 14 size bins. The zero value
// is not usable; construct one with New.
type Heap struct {
	mu     sync.Mutex
	assert AssertFunc

	pools *pool
	bins  [numBins]*list.List
	binMap uint16 // bit i set iff bins[i] is non-empty

	freeBytes   int
	minFreeSeen int

	// tags records TagAllocatedBlock's debug tag per live block, keyed by
	// its header location; Walk reports it, and Free/Realloc clear or
	// carry it forward. A ref absent here (the common case) reports nil.
	tags map[ref]interface{}
}

// New returns an empty Heap. Call AddPool at least once before Alloc.
func New(assert AssertFunc) *Heap {
	if assert == nil {
		assert = defaultAssert
	}
	h := &Heap{assert: assert, tags: make(map[ref]interface{})}
	for i := range h.bins {
		h.bins[i] = list.New()
	}
	return h
}

// AddPool donates buf's backing storage to the heap, carving it into one
// large free block between a permanently-allocated bottom and top sentinel
// (spec.md §4.A "Initialization"). buf must not be touched by the caller
// again.
func (h *Heap) AddPool(buf []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.assert(len(buf) >= 3*headerBytes+minBlock, "pool too small: %d bytes", len(buf))

	p := &pool{buf: buf}
	p.next = h.pools
	h.pools = p

	bottom := 0
	midPayload := len(buf) - 3*headerBytes
	mid := bottom + headerBytes
	top := mid + headerBytes + midPayload

	h.writeHeader(p, bottom, 0, allocatedBit)                  // bottom sentinel: size 0, allocated
	h.writeHeader(p, mid, allocatedBit, uint64(midPayload))     // free block, prev (bottom) allocated
	h.writeHeader(p, top, uint64(midPayload), allocatedBit)     // top sentinel: size 0, allocated

	h.freeBytes += midPayload
	h.trackMinFree()
	h.addToBin(ref{p, mid}, midPayload)
}

// --- header accessors ---------------------------------------------------

// writeHeader sets a fresh block's canary, size-of-previous, and size
// words verbatim; prevSizeRaw and sizeRaw must already carry the
// allocated-bit convention (spec.md §4.A).
func (h *Heap) writeHeader(p *pool, off int, prevSizeRaw, sizeRaw uint64) {
	binary.LittleEndian.PutUint64(p.buf[off:], canaryMagic)
	binary.LittleEndian.PutUint64(p.buf[off+8:], prevSizeRaw)
	binary.LittleEndian.PutUint64(p.buf[off+16:], sizeRaw)
}

func (h *Heap) canary(p *pool, off int) uint64 {
	return binary.LittleEndian.Uint64(p.buf[off:])
}

func (h *Heap) rawSize(p *pool, off int) uint64 {
	return binary.LittleEndian.Uint64(p.buf[off+16:])
}

func (h *Heap) setRawSize(p *pool, off int, v uint64) {
	binary.LittleEndian.PutUint64(p.buf[off+16:], v)
}

func (h *Heap) payloadSize(p *pool, off int) int {
	return int(h.rawSize(p, off) &^ allocatedBit)
}

func (h *Heap) isAllocated(p *pool, off int) bool {
	return h.rawSize(p, off)&allocatedBit != 0
}

func (h *Heap) prevSize(p *pool, off int) int {
	return int(binary.LittleEndian.Uint64(p.buf[off+8:]) &^ allocatedBit)
}

func (h *Heap) prevAllocated(p *pool, off int) bool {
	return binary.LittleEndian.Uint64(p.buf[off+8:])&allocatedBit != 0
}

func (h *Heap) setPrevSize(p *pool, off int, v uint64, allocated bool) {
	if allocated {
		v |= allocatedBit
	}
	binary.LittleEndian.PutUint64(p.buf[off+8:], v)
}

func (h *Heap) nextOff(p *pool, off int) int {
	return off + headerBytes + h.payloadSize(p, off)
}

func (h *Heap) prevOff(p *pool, off int) int {
	return off - headerBytes - h.prevSize(p, off)
}

// initCanary stamps a fresh block header's canary word, ahead of a setSize
// call to fill in its size (and, via mirroring, its predecessor's
// size-of-previous word).
func (h *Heap) initCanary(p *pool, off int) {
	binary.LittleEndian.PutUint64(p.buf[off:], canaryMagic)
}

// setSize rewrites off's own size word (preserving its current allocated
// bit) and mirrors the new payload size, with allocated's bit, into the
// next neighbor's size-of-previous word (spec.md §4.A).
func (h *Heap) setSize(p *pool, off, payload int, allocated bool) {
	v := uint64(payload)
	if allocated {
		v |= allocatedBit
	}
	h.setRawSize(p, off, v)
	h.setPrevSize(p, off+headerBytes+payload, uint64(payload), allocated)
}

// --- bin management ------------------------------------------------------

func binIndex(payload int) int {
	if payload >= maxBinSize {
		return numBins - 1
	}
	i := 0
	for size := minBinSize; size*2 <= payload && i < numBins-1; size *= 2 {
		i++
	}
	return i
}

func (h *Heap) addToBin(r ref, payload int) {
	i := binIndex(payload)
	h.bins[i].PushFront(&list.Element{Value: r})
	h.binMap |= 1 << uint(i)
}

func (h *Heap) removeFromBin(payload int, e *list.Element) {
	i := binIndex(payload)
	h.bins[i].Remove(e)
	if h.bins[i].Len() == 0 {
		h.binMap &^= 1 << uint(i)
	}
}

func (h *Heap) trackMinFree() {
	if h.minFreeSeen == 0 || h.freeBytes < h.minFreeSeen {
		h.minFreeSeen = h.freeBytes
	}
}
