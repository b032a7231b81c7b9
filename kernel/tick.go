package kernel

import (
	"github.com/mneedes/gomos/hal"
	"github.com/mneedes/gomos/list"
)

// TimerCallback is a software timer's expiry callback (spec.md §4.P). It
// returns true to mean "one-shot, remove me" and false to mean "I re-armed
// myself (or should remain pending)." Callbacks run inline in the tick
// handler, with the kernel lock released so they may call ISR-safe
// operations (Sem.Post, Signal.Raise, Queue.TrySend); they must not block.
type TimerCallback func(userData interface{}) bool

// timerEntry is the TagTimer payload stored in a timer-wheel Element's
// Value alongside the shared Tag/Deadline fields.
type timerEntry struct {
	k        *Kernel
	cb       TimerCallback
	userData interface{}
	period   uint64
	elem     *list.Element
	canceled bool
}

// Tick advances the tick counter by one and processes the timer wheel's
// head-to-tail scan (spec.md §4.K "Tick handler"). It is ISR-safe: call it
// from a real hardware tick source, or from a test driver stepping time
// manually via AdvanceTickCount. It never blocks.
func (k *Kernel) Tick() {
	k.mu.Lock()
	k.tick++
	k.cfg.EventHook(hal.EventTick, k.tick, idOf(k.running))
	k.expireTimers()
	k.mu.Unlock()
}

// expireTimers processes every timer-wheel entry whose deadline has
// arrived, stopping at the first one that hasn't (the list is sorted).
// Caller holds k.mu.
func (k *Kernel) expireTimers() {
	for {
		e := k.timerList.Front()
		if e == nil || e.Deadline > k.tick {
			return
		}
		k.timerList.Remove(e)
		switch e.Tag {
		case list.TagThread:
			k.expireThreadTimeout(e)
		case list.TagTimer:
			k.expireSoftwareTimer(e)
		}
	}
}

func (k *Kernel) expireThreadTimeout(e *list.Element) {
	t := e.Value.(*Thread)
	t.timerElem = nil
	t.hasTimeout = false

	// A timeout racing an already-queued event resolves in favor of the
	// event (spec.md §5 "Cancellation and timeout"): if the object t was
	// waiting on has already been queued on the ISR event queue, leave t
	// alone; drainISREvents will pick it up on the next reschedule.
	if t.blockedOn == nil {
		if t.state == StateWaitTick {
			k.enqueueRunnable(t, true) // a Delay has elapsed
		}
		return // otherwise already handled by an event or a direct wake
	}
	for _, wq := range k.isrEvents {
		if wq.pend == t.blockedOn {
			return
		}
	}

	t.blockedOn.Remove(t.pendElem)
	t.blockedOn = nil
	t.pendElem = nil
	t.timedOut = true
	k.enqueueRunnable(t, true)
}

func (k *Kernel) expireSoftwareTimer(e *list.Element) {
	te := e.Value.(*timerEntry)
	if te.canceled {
		return
	}
	k.mu.Unlock()
	oneShot := te.cb(te.userData)
	k.mu.Lock()
	if te.elem != e {
		return // the callback itself called Set, Reset or Cancel on this timer
	}
	if oneShot {
		te.elem = nil
		return
	}
	te.elem = &list.Element{Value: te, Tag: list.TagTimer, Deadline: k.tick + te.period}
	k.timerList.InsertSorted(te.elem)
}
