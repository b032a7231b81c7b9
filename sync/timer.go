package sync

import "github.com/mneedes/gomos/kernel"

// TimerCallback is a software timer's expiry callback (spec.md §4.P). It
// returns true for "one-shot, remove me" and false to mean "I re-armed
// myself (or should remain pending)." Runs inline in the tick handler and
// must not block.
type TimerCallback = kernel.TimerCallback

// Timer is the public handle for a software timer registered on the
// kernel's shared timer wheel.
type Timer struct {
	h *kernel.TimerHandle
}

// NewTimer allocates a timer bound to cb/userData, not yet armed.
func NewTimer(k *kernel.Kernel, cb TimerCallback, userData interface{}) *Timer {
	return &Timer{h: k.NewTimer(cb, userData)}
}

// Set arms the timer to fire after period ticks, and every period ticks
// thereafter unless cb returns true.
func (t *Timer) Set(period uint64) { t.h.Set(period) }

// Cancel disarms the timer; a no-op if already disarmed.
func (t *Timer) Cancel() { t.h.Cancel() }

// Reset cancels the timer and re-arms it with its current period.
func (t *Timer) Reset() { t.h.Reset() }
