package kernel

import (
	"time"

	"github.com/mneedes/gomos/list"
)

// Yield gives up the remainder of self's time slice, re-queuing it at the
// tail of its priority's run queue and letting the scheduler pick among
// any same-priority siblings (round robin) or a higher-priority thread
// that has since become runnable.
func (k *Kernel) Yield(self *Thread) {
	k.mu.Lock()
	k.enqueueRunnable(self, false)
	k.mu.Unlock()
	k.reschedule(self)
}

// Delay blocks self for ticks system ticks. ticks == 0 behaves like Yield.
func (k *Kernel) Delay(self *Thread, ticks uint64) {
	if ticks == 0 {
		k.Yield(self)
		return
	}
	k.mu.Lock()
	self.state = StateWaitTick
	self.hasTimeout = true
	self.wakeTick = k.tick + ticks
	self.timerElem = &list.Element{Value: self, Tag: list.TagThread, Deadline: self.wakeTick}
	k.timerList.InsertSorted(self.timerElem)
	k.mu.Unlock()
	k.reschedule(self)
}

// DelayMicroseconds busy-delays for approximately us microseconds without
// yielding the scheduling baton, matching a tight hardware NOP loop: too
// short a delay to be worth a context switch.
func (k *Kernel) DelayMicroseconds(us uint64) {
	k.cfg.Clock.Sleep(time.Duration(us) * time.Microsecond)
}

// TickCount returns the number of system ticks elapsed since Run started.
func (k *Kernel) TickCount() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// AdvanceTickCount steps the tick counter forward by n ticks, running the
// timer-expiry scan after each one. Intended for deterministic tests that
// want to avoid a real or fake-clock ticker.
func (k *Kernel) AdvanceTickCount(n uint64) {
	for i := uint64(0); i < n; i++ {
		k.Tick()
	}
}

// CycleCount approximates a hardware cycle counter from the configured
// clock, since no portable cycle-accurate counter exists (SPEC_FULL.md).
func (k *Kernel) CycleCount() uint64 {
	elapsed := k.cfg.Clock.Now().Sub(k.startTime)
	ticks := uint64(elapsed / k.cfg.TickPeriod)
	return ticks * k.cfg.NominalCyclesPerTick
}

// --- stop / kill --------------------------------------------------------

// threadExit runs when a thread's entry function returns normally
// (spec.md §4.K "ThreadExit"): record the return value, mark STOPPED, and
// release every thread parked in WaitForStop on it.
func (k *Kernel) threadExit(t *Thread, ret interface{}) {
	k.mu.Lock()
	t.retVal = ret
	t.state = StateStopped
	for {
		w := k.wakeHeadLocked(t.stopWaiters)
		if w == nil {
			break
		}
	}
	next := k.pickNext()
	k.running = next
	k.mu.Unlock()
	next.resumeCh <- struct{}{}
	// This goroutine now returns and exits; it never calls reschedule
	// itself since a stopped thread has nothing left to resume.
}

// WaitForStop blocks self until target reaches StateStopped.
func (k *Kernel) WaitForStop(self, target *Thread) {
	k.waitForStop(self, target, -1)
}

// WaitForStopTimeout is WaitForStop with a tick timeout; it returns true if
// target stopped before the timeout elapsed.
func (k *Kernel) WaitForStopTimeout(self, target *Thread, ticks uint64) bool {
	return !k.waitForStop(self, target, int64(ticks))
}

func (k *Kernel) waitForStop(self, target *Thread, timeoutTicks int64) bool {
	k.mu.Lock()
	if target.state == StateStopped {
		k.mu.Unlock()
		return false
	}
	k.mu.Unlock()

	state := StateWaitStop
	if timeoutTicks >= 0 {
		state = StateWaitStopOrTick
	}
	return k.BlockOn(self, target.stopWaiters, state, timeoutTicks)
}

// Kill stops target, abandoning whatever it was doing in favor of its
// termination handler (spec.md §4.K). A real RTOS does this by
// re-initializing the victim's stack to jump straight to the handler; since
// a Go goroutine's call stack can't be discarded and re-pointed like that,
// target's next CPU dispatch instead unwinds it via killSignal (see
// checkKilled in sched.go), and finishKilled runs the handler once the
// unwind reaches Start's top-level recover.
func (k *Kernel) Kill(self, target *Thread) {
	k.mu.Lock()
	if target.state == StateStopped || target.state == StateTimeToStop {
		k.mu.Unlock()
		return
	}
	if target.state == StateInit {
		// Never started: no live goroutine to unwind, nothing to release.
		target.state = StateStopped
		k.mu.Unlock()
		return
	}
	k.removeFromPend(target)
	k.removeFromTimer(target)
	k.removeFromRunQueue(target)
	target.state = StateTimeToStop

	if target == self {
		k.mu.Unlock()
		panic(killSignal{})
	}

	// target's goroutine is parked on target.resumeCh somewhere inside its
	// last reschedule()/blockLocked() call. Put it back on a run queue so
	// the scheduler dispatches it one more time; checkKilled will see
	// StateTimeToStop the moment it wakes and unwind it immediately.
	target.runElem = k.runQueueOf(target).PushBack(&list.Element{Value: target})
	k.mu.Unlock()
}

// finishKilled runs a killed thread's termination handler at its original
// (nominal) priority and then releases its WaitForStop waiters, exactly
// like a normal ThreadExit. Called from Start's recover once killSignal has
// unwound the victim's goroutine.
func (k *Kernel) finishKilled(t *Thread) {
	k.mu.Lock()
	t.effectivePriority = t.nominalPriority
	t.inherited = false
	handler, arg := t.termHandler, t.termArg
	k.mu.Unlock()
	if handler != nil {
		handler(arg)
	}
	k.threadExit(t, t.retVal)
}
