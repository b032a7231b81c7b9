package kernel

import (
	"github.com/mneedes/gomos/hal"
	"github.com/mneedes/gomos/list"
)

// reschedule is the pendable-switch-exception analogue from spec.md §4.K:
// the calling thread "pends the switch" and blocks on its own baton until
// the scheduler hands it back the CPU. self may be nil only during the
// pre-scheduler bootstrap in Run.
func (k *Kernel) reschedule(self *Thread) {
	k.mu.Lock()
	k.cfg.EventHook(hal.EventSchedulerEnter, k.tick, idOf(self))
	next := k.doSchedule(self)
	k.running = next
	k.cfg.EventHook(hal.EventSchedulerExit, k.tick, next.id)
	k.mu.Unlock()

	if next == self {
		// Nothing else is eligible to preempt; keep running without
		// touching the baton (self never blocked on its own channel).
		k.checkKilled(self)
		return
	}
	next.resumeCh <- struct{}{}
	if self != nil {
		<-self.resumeCh
		k.checkKilled(self)
	}
}

// killSignal unwinds a killed thread's goroutine back to Start's top-level
// recover, which runs its termination handler (spec.md §4.K "Kill"). A real
// RTOS re-initializes the victim's stack to jump straight to the handler;
// Go gives us no equivalent of discarding a call stack in place, so a
// recovered panic plays the same role, and as a side effect runs any defers
// the victim's body had pending, same as a cancellation cleanup handler.
type killSignal struct{}

// checkKilled runs every time a thread resumes the CPU and aborts it via
// killSignal if it was marked StateTimeToStop while parked or preempted.
func (k *Kernel) checkKilled(self *Thread) {
	if self == nil {
		return
	}
	k.mu.Lock()
	killed := self.state == StateTimeToStop
	k.mu.Unlock()
	if killed {
		panic(killSignal{})
	}
}

func idOf(t *Thread) int {
	if t == nil {
		return -1
	}
	return t.id
}

// doSchedule runs the algorithm in spec.md §4.K and returns the thread that
// should run next. Caller holds k.mu.
func (k *Kernel) doSchedule(self *Thread) *Thread {
	k.drainISREvents()

	next := k.pickNext()
	return next
}

// drainISREvents moves the highest-priority waiter of every semaphore or
// signal queued on the ISR event queue onto that waiter's run queue, per
// spec.md §4.K. Caller holds k.mu.
func (k *Kernel) drainISREvents() {
	events := k.isrEvents
	k.isrEvents = nil
	for _, wq := range events {
		wq.onEvent = false
		if e := wq.pend.Front(); e != nil {
			t := e.Value.(*Thread)
			wq.pend.Remove(e)
			k.removeFromTimer(t)
			t.blockedOn = nil
			t.pendElem = nil
			t.timedOut = false
			k.enqueueRunnable(t, true)
		}
	}
}

// pickNext chooses the head of the first non-empty run queue (lowest
// priority number wins) and removes it from that queue for the duration of
// its run, per the "running thread is not on a run queue" invariant in
// spec.md §3, so any same-priority sibling is now ahead of it. Whatever
// later makes it RUNNABLE again re-inserts it: Yield at the tail (round
// robin), a wake from a pend queue, an ISR event or a timeout at the front.
func (k *Kernel) pickNext() *Thread {
	for _, q := range k.runQueues {
		if q.Len() == 0 {
			continue
		}
		e := q.Front()
		t := e.Value.(*Thread)
		if q.Len() > 1 {
			q.MoveToBack(e)
		}
		q.Remove(e)
		t.runElem = nil
		return t
	}
	return k.idle
}

// --- blocking primitives' shared entry points -------------------------

// BlockOn inserts self onto pend (ordered by priority), sets its wait
// state, optionally arms a timeout, and yields until woken or timed out.
// It returns true if the wait ended due to timeout. This is the slow-path
// entry point sync.Mutex/Sem/Signal/queue.Queue all funnel through.
func (k *Kernel) BlockOn(self *Thread, pend *list.List, state State, timeoutTicks int64) bool {
	k.mu.Lock()
	elem := insertPendByPriority(pend, self)
	timedOut := k.blockLocked(self, pend, elem, state, timeoutTicks)
	k.mu.Unlock()
	return timedOut
}

// blockLocked does the work of BlockOn. Caller holds k.mu on entry; it is
// held again on return (reschedule is called with the lock dropped).
func (k *Kernel) blockLocked(self *Thread, pend *list.List, pendElem *list.Element, state State, timeoutTicks int64) bool {
	self.blockedOn = pend
	self.pendElem = pendElem
	self.state = state
	self.timedOut = false
	if timeoutTicks >= 0 {
		self.hasTimeout = true
		self.wakeTick = k.tick + uint64(timeoutTicks)
		self.timerElem = &list.Element{Value: self, Tag: list.TagThread, Deadline: self.wakeTick}
		k.timerList.InsertSorted(self.timerElem)
	}
	k.mu.Unlock()
	k.reschedule(self)
	k.mu.Lock()
	return self.timedOut
}

// BlockOnQueue is BlockOn for the WaitQueue wrapper sync.Sem/sync.Signal use
// (sync.Mutex parks directly on a bare *list.List instead, since it is never
// released from an ISR and so needs no onEvent bookkeeping).
func (k *Kernel) BlockOnQueue(self *Thread, wq *WaitQueue, state State, timeoutTicks int64) bool {
	return k.BlockOn(self, wq.pend, state, timeoutTicks)
}

// WakeQueueHead is WakeHead for a WaitQueue wrapper.
func (k *Kernel) WakeQueueHead(wq *WaitQueue) *Thread {
	return k.WakeHead(wq.pend)
}

// WakeHead pops the highest-priority waiter off pend, makes it RUNNABLE at
// the front of its run queue, and clears any timeout registration. It
// returns the woken thread, or nil if pend was empty.
func (k *Kernel) WakeHead(pend *list.List) *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.wakeHeadLocked(pend)
}

func (k *Kernel) wakeHeadLocked(pend *list.List) *Thread {
	e := pend.Front()
	if e == nil {
		return nil
	}
	t := e.Value.(*Thread)
	pend.Remove(e)
	t.blockedOn = nil
	t.pendElem = nil
	k.removeFromTimer(t)
	t.timedOut = false
	k.enqueueRunnable(t, true)
	return t
}

// NotifyRelease is the ISR-safe release pathway (spec.md §4.P): if wq has
// waiters and isn't already queued for the scheduler to drain, queue it,
// waking the idle thread if it is the one running. It does not switch away
// from a running application thread, even one the waiter outranks; the
// waiter is moved to its run queue at the next reschedule. Safe to call from
// any goroutine, including one simulating an
// interrupt; never blocks waiting for the scheduler to actually run.
func (k *Kernel) NotifyRelease(wq *WaitQueue) {
	k.mu.Lock()
	waiter := wq.pend.Front()
	shouldPreempt := false
	if waiter != nil && !wq.onEvent {
		wq.onEvent = true
		k.isrEvents = append(k.isrEvents, wq)
		if running := k.running; running != nil {
			shouldPreempt = waiter.Value.(*Thread).effectivePriority < running.effectivePriority
		}
		if running := k.running; running == k.idle {
			select {
			case k.wakeIdleCh <- struct{}{}:
			default:
			}
		}
	}
	k.mu.Unlock()

	if shouldPreempt {
		// The running thread cannot be forcibly preempted mid-body in
		// this simulator (see SPEC_FULL.md); its next kernel call will
		// observe the newly runnable waiter via drainISREvents. This
		// mirrors a cooperative RTOS where ISRs can only *request* a
		// switch, not force one mid-instruction on a CPU busy running
		// non-kernel code.
	}
}

// --- priority / inheritance --------------------------------------------

// CurrentRunning returns the thread the scheduler most recently dispatched.
func (k *Kernel) CurrentRunning() *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// RaiseEffective raises owner's effective priority to prio (a lower number)
// if prio is higher priority than owner's current effective priority, and
// repositions owner on its run queue if it is currently RUNNABLE. Used by
// sync.Mutex for single-level priority inheritance (spec.md §4.P, §9).
func (k *Kernel) RaiseEffective(owner *Thread, prio int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if prio >= owner.effectivePriority {
		return
	}
	k.moveEffectivePriority(owner, prio)
	owner.inherited = true
}

// RestoreEffective resets owner's effective priority to its nominal value.
func (k *Kernel) RestoreEffective(owner *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !owner.inherited {
		return
	}
	k.moveEffectivePriority(owner, owner.nominalPriority)
	owner.inherited = false
}

func (k *Kernel) moveEffectivePriority(t *Thread, prio int) {
	if t.effectivePriority == prio {
		return
	}
	if t.runElem != nil {
		k.runQueueOf(t).Remove(t.runElem)
		t.runElem = nil
		t.effectivePriority = prio
		t.runElem = k.runQueueOf(t).PushFront(&list.Element{Value: t})
		return
	}
	t.effectivePriority = prio
	if t.blockedOn != nil && t.pendElem != nil {
		// Resort the thread's position in whatever it's waiting on.
		t.blockedOn.Remove(t.pendElem)
		t.pendElem = insertPendByPriority(t.blockedOn, t)
	}
}

// SetPriority changes t's nominal priority. If inheritance is currently
// raising t's effective priority, the higher effective priority is
// preserved; the nominal value is always updated (spec.md §4.K).
func (k *Kernel) SetPriority(t *Thread, prio int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t.nominalPriority = prio
	if t.inherited && t.effectivePriority <= prio {
		return
	}
	k.moveEffectivePriority(t, prio)
	t.inherited = false
}

// GetState returns t's current lifecycle state.
func (t *Thread) GetState() State {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.state
}

// GetPriority returns t's effective priority.
func (t *Thread) GetPriority() int {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.effectivePriority
}
