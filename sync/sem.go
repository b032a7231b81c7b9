package sync

import "github.com/mneedes/gomos/kernel"

// Sem is a counting semaphore with an ISR-safe release path (spec.md §4.P).
// The zero value is not usable; construct one with NewSem.
type Sem struct {
	k     *kernel.Kernel
	wq    *kernel.WaitQueue
	value int
}

// NewSem returns a semaphore initialized to initial.
func NewSem(k *kernel.Kernel, initial int) *Sem {
	return &Sem{k: k, wq: kernel.NewWaitQueue(), value: initial}
}

// Wait blocks self until the semaphore's value is positive, then decrements
// it. It has no timeout; use WaitTimeout for a bounded wait.
func (s *Sem) Wait(self *kernel.Thread) {
	s.WaitTimeout(self, -1)
}

// WaitTimeout blocks self for at most timeoutTicks ticks (no bound if
// negative) waiting for the semaphore to become positive, then decrements
// it. It returns true if the timeout elapsed first.
func (s *Sem) WaitTimeout(self *kernel.Thread, timeoutTicks int64) bool {
	for {
		if s.tryDecrement() {
			return false
		}
		state := kernel.StateWaitSem
		if timeoutTicks >= 0 {
			state = kernel.StateWaitSemOrTick
		}
		if s.k.BlockOnQueue(self, s.wq, state, timeoutTicks) {
			return true
		}
		// Woken: re-check rather than assume a slot is still ours, since
		// NotifyRelease only requests a scheduler drain (spec.md §4.P).
	}
}

// TryWait attempts the fast path only: an atomic conditional decrement.
// Never blocks; ISR-safe.
func (s *Sem) TryWait() bool {
	return s.tryDecrement()
}

func (s *Sem) tryDecrement() bool {
	s.k.Lock()
	defer s.k.Unlock()
	if s.value > 0 {
		s.value--
		return true
	}
	return false
}

// Post increments the semaphore and, if threads are waiting, queues the
// wait queue on the scheduler's ISR event queue for draining. ISR-safe;
// never blocks.
func (s *Sem) Post() {
	s.k.Lock()
	s.value++
	s.k.Unlock()
	s.k.NotifyRelease(s.wq)
}

// Value returns the semaphore's current count.
func (s *Sem) Value() int {
	s.k.Lock()
	defer s.k.Unlock()
	return s.value
}

// WaiterCount returns the number of threads currently parked on s.
func (s *Sem) WaiterCount() int {
	return s.k.WaitQueueLen(s.wq)
}
