package kernel

import "github.com/mneedes/gomos/list"

// TimerHandle is an opaque handle to a software timer registered on the
// kernel's shared timer wheel (spec.md §3, §4.P/T). Package sync's Timer
// wraps this to provide the public Init/Set/Cancel/Reset API.
type TimerHandle struct {
	k    *Kernel
	ent  *timerEntry
	mu   chan struct{} // 1-buffered, acts as a cheap per-timer lock
	init bool
}

// NewTimer allocates a timer bound to cb/userData, not yet armed.
func (k *Kernel) NewTimer(cb TimerCallback, userData interface{}) *TimerHandle {
	h := &TimerHandle{k: k, mu: make(chan struct{}, 1)}
	h.mu <- struct{}{}
	h.ent = &timerEntry{k: k, cb: cb, userData: userData}
	h.init = true
	return h
}

func (h *TimerHandle) lock()   { <-h.mu }
func (h *TimerHandle) unlock() { h.mu <- struct{}{} }

// Set arms the timer to fire after period ticks (and every period ticks
// thereafter unless its callback returns true).
func (h *TimerHandle) Set(period uint64) {
	h.lock()
	defer h.unlock()
	h.k.mu.Lock()
	defer h.k.mu.Unlock()
	h.cancelLocked()
	h.ent.period = period
	h.ent.canceled = false
	h.ent.elem = &list.Element{Value: h.ent, Tag: list.TagTimer, Deadline: h.k.tick + period}
	h.k.timerList.InsertSorted(h.ent.elem)
}

// Cancel disarms the timer; it is a no-op if already disarmed.
func (h *TimerHandle) Cancel() {
	h.lock()
	defer h.unlock()
	h.k.mu.Lock()
	defer h.k.mu.Unlock()
	h.cancelLocked()
}

func (h *TimerHandle) cancelLocked() {
	h.ent.canceled = true
	if h.ent.elem != nil {
		h.k.timerList.Remove(h.ent.elem)
		h.ent.elem = nil
	}
}

// Reset cancels the timer and re-arms it with its current period,
// computed from now.
func (h *TimerHandle) Reset() {
	h.lock()
	period := h.ent.period
	h.unlock()
	h.Set(period)
}
