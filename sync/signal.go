package sync

import (
	"math/bits"

	"github.com/mneedes/gomos/kernel"
)

// Signal is a 32-bit flag set used for multi-queue and event-style waits
// (spec.md §4.P). Channel 0 is the highest priority bit. The zero value is
// not usable; construct one with NewSignal.
type Signal struct {
	k    *kernel.Kernel
	wq   *kernel.WaitQueue
	mask uint32
}

// NewSignal returns a signal with no bits set.
func NewSignal(k *kernel.Kernel) *Signal {
	return &Signal{k: k, wq: kernel.NewWaitQueue()}
}

// Wait blocks self until at least one bit is set, then atomically swaps the
// mask back to zero and returns the bits observed.
func (s *Signal) Wait(self *kernel.Thread) uint32 {
	mask, _ := s.WaitTimeout(self, -1)
	return mask
}

// WaitTimeout is Wait bounded by timeoutTicks ticks (no bound if negative).
// timedOut is true if the timeout elapsed with no bit ever observed set.
func (s *Signal) WaitTimeout(self *kernel.Thread, timeoutTicks int64) (mask uint32, timedOut bool) {
	for {
		if m, ok := s.trySwap(); ok {
			return m, false
		}
		state := kernel.StateWaitSem
		if timeoutTicks >= 0 {
			state = kernel.StateWaitSemOrTick
		}
		if s.k.BlockOnQueue(self, s.wq, state, timeoutTicks) {
			return 0, true
		}
	}
}

func (s *Signal) trySwap() (uint32, bool) {
	s.k.Lock()
	defer s.k.Unlock()
	if s.mask == 0 {
		return 0, false
	}
	m := s.mask
	s.mask = 0
	return m, true
}

// Poll atomically swaps the mask back to zero and returns whatever bits
// were set (0 if none). Never blocks.
func (s *Signal) Poll() uint32 {
	s.k.Lock()
	defer s.k.Unlock()
	m := s.mask
	s.mask = 0
	return m
}

// Raise ORs bits into the mask and, if a waiter exists, queues s for the
// scheduler to drain. ISR-safe; never blocks. Raising an already-set bit
// between two waits is idempotent (spec.md §8 "signal idempotence").
func (s *Signal) Raise(bits uint32) {
	s.k.Lock()
	s.mask |= bits
	s.k.Unlock()
	s.k.NotifyRelease(s.wq)
}

// WaiterCount returns the number of threads currently parked on s.
func (s *Signal) WaiterCount() int {
	return s.k.WaitQueueLen(s.wq)
}

// NextChannel returns the index of the lowest set bit in mask (0 = highest
// priority channel), or -1 if mask is zero.
func NextChannel(mask uint32) int {
	if mask == 0 {
		return -1
	}
	return bits.TrailingZeros32(mask)
}

// ClearChannel returns mask with bit ch cleared.
func ClearChannel(mask uint32, ch int) uint32 {
	return mask &^ (1 << uint(ch))
}

// ChannelBit returns the bitmask for channel ch.
func ChannelBit(ch int) uint32 {
	return 1 << uint(ch)
}
