package heap

import "github.com/mneedes/gomos/list"

// Block is an opaque handle to one allocated block, returned by Alloc and
// consumed by Free/Realloc/TagAllocatedBlock. Using a handle instead of a
// raw pointer keeps every access bounds-checked by Go while still modeling
// the spec's "pointer to a block of memory" (spec.md §4.A); Data is the
// block's payload view, safe to read and write freely.
type Block struct {
	r    ref
	size int

	Data []byte
}

func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Alloc returns a block of at least size bytes, or ok == false if no pool
// has room (spec.md §4.A "Allocate"): round up to the minimum payload size,
// find the smallest bin that could hold it, probe up to 8 candidates there,
// and fall back to the first block of the next non-empty (and therefore
// certainly large enough) bin, splitting off any leftover large enough to
// be useful.
func (h *Heap) Alloc(size int) (*Block, bool) {
	need := roundUp(size, alignment)
	if need < minBlock {
		need = minBlock
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	startBin := binIndex(need)
	const maxProbe = 8

	for i := startBin; i < numBins; i++ {
		if h.binMap&(1<<uint(i)) == 0 {
			continue
		}
		probe := 0
		if i > startBin {
			probe = -1 // the first candidate in a strictly larger bin always qualifies
		}
		for e := h.bins[i].Front(); e != nil; e = e.Next() {
			r := e.Value.(ref)
			payload := h.payloadSize(r.p, r.off)
			if payload >= need {
				return h.takeBlock(r, e, payload, need), true
			}
			probe++
			if probe >= maxProbe {
				break
			}
		}
	}
	return nil, false
}

func (h *Heap) takeBlock(r ref, e *list.Element, payload, need int) *Block {
	h.removeFromBin(payload, e)

	remainder := payload - need
	if remainder >= headerBytes+minBlock {
		remOff := r.off + headerBytes + need
		h.setSize(r.p, r.off, need, true) // mirrors into remOff's size-of-previous
		h.initCanary(r.p, remOff)
		remPayload := remainder - headerBytes // remOff's own header comes out of remainder
		h.setSize(r.p, remOff, remPayload, false)
		h.addToBin(ref{r.p, remOff}, remPayload)
		h.freeBytes -= need + headerBytes
	} else {
		need = payload
		h.setSize(r.p, r.off, need, true)
		h.freeBytes -= need
	}
	h.trackMinFree()

	start := r.off + headerBytes
	return &Block{r: r, size: need, Data: r.p.buf[start : start+need : start+need]}
}

// Free returns b's storage to its pool, validating its canary and
// allocated bit, then coalescing with either neighbor that is also free
// (spec.md §4.A "Free"). Freeing an already-freed block or one with a
// corrupted canary is a category (i) programmer error.
func (h *Heap) Free(b *Block) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := b.r
	h.assert(h.canary(r.p, r.off) == canaryMagic, "corrupt canary at free")
	h.assert(h.isAllocated(r.p, r.off), "double free")

	payload := h.payloadSize(r.p, r.off)
	off := r.off
	h.freeBytes += payload

	if next := h.nextOff(r.p, off); !h.isAllocated(r.p, next) {
		nextPayload := h.payloadSize(r.p, next)
		h.removeFromBin(nextPayload, h.findBinElem(r.p, next))
		payload += headerBytes + nextPayload
		h.freeBytes += headerBytes // next's header becomes free payload
	}
	if h.prevOff(r.p, off) >= 0 && !h.prevAllocated(r.p, off) {
		prevOff := h.prevOff(r.p, off)
		prevPayload := h.payloadSize(r.p, prevOff)
		h.removeFromBin(prevPayload, h.findBinElem(r.p, prevOff))
		off = prevOff
		payload += headerBytes + prevPayload
		h.freeBytes += headerBytes // this block's header becomes free payload
	}

	h.setSize(r.p, off, payload, false)
	h.addToBin(ref{r.p, off}, payload)
	h.trackMinFree()
	delete(h.tags, b.r)

	b.Data = nil
}

// findBinElem locates the list.Element for the free block at (p, off); used
// by coalescing, which must remove a neighbor from its bin before merging.
func (h *Heap) findBinElem(p *pool, off int) *list.Element {
	payload := h.payloadSize(p, off)
	i := binIndex(payload)
	for e := h.bins[i].Front(); e != nil; e = e.Next() {
		r := e.Value.(ref)
		if r.p == p && r.off == off {
			return e
		}
	}
	return nil
}

// Realloc resizes b, preserving its content up to the smaller of the old
// and new sizes. It may return a different Block; after a successful call b
// must not be used again. On failure (nil, false) b is left allocated and
// unchanged. A newSize of 0 frees b and returns nil,
// ok == true (spec.md §4.A "if new size is 0, free and return null").
func (h *Heap) Realloc(b *Block, newSize int) (*Block, bool) {
	if newSize == 0 {
		h.Free(b)
		return nil, true
	}
	if newSize <= b.size {
		return b, true
	}
	nb, ok := h.Alloc(newSize)
	if !ok {
		return nil, false
	}
	copy(nb.Data, b.Data)
	h.mu.Lock()
	if tag, ok := h.tags[b.r]; ok {
		h.tags[nb.r] = tag
	}
	h.mu.Unlock()
	h.Free(b)
	return nb, true
}

// TagAllocatedBlock attaches an arbitrary debug tag to an allocated block,
// retrievable via Walk (spec.md §6 heap operations: "tag-allocated-block").
func (h *Heap) TagAllocatedBlock(b *Block, tag interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tags[b.r] = tag
}

// BlockInfo describes one block during a Walk.
type BlockInfo struct {
	Offset    int
	Size      int
	Allocated bool
	Tag       interface{}
}

// Walk visits every block in every pool in address order, including the
// sentinels, calling fn with its current state (spec.md §6 "walk"). It
// does not report tags for blocks it did not hand out as a Block (the
// sentinels, and any block freed since its tag was set).
func (h *Heap) Walk(fn func(BlockInfo)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := h.pools; p != nil; p = p.next {
		for off := 0; off < len(p.buf); off = h.nextOff(p, off) {
			fn(BlockInfo{
				Offset:    off,
				Size:      h.payloadSize(p, off),
				Allocated: h.isAllocated(p, off),
				Tag:       h.tags[ref{p, off}],
			})
		}
	}
}

// GetBiggestChunk returns the size of the single largest free block
// currently available across every pool, scanning every bin's free list in
// full (spec.md §9: unlike Alloc's bounded 8-probe search, this diagnostic
// call makes no fitness tradeoff against latency).
func (h *Heap) GetBiggestChunk() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	best := 0
	for i := range h.bins {
		for e := h.bins[i].Front(); e != nil; e = e.Next() {
			r := e.Value.(ref)
			if payload := h.payloadSize(r.p, r.off); payload > best {
				best = payload
			}
		}
	}
	return best
}

// FreeBytes returns the total free payload bytes across every pool.
func (h *Heap) FreeBytes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.freeBytes
}

// MinFreeBytesSeen returns the low-water mark of FreeBytes ever observed.
func (h *Heap) MinFreeBytesSeen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.minFreeSeen
}
