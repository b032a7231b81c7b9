package kernel

import (
	"time"

	"github.com/mneedes/gomos/hal"
)

// idleLoop is the idle thread's body (spec.md §4.K "idle task" / §6
// tickless idle). It never returns; pickNext only ever hands the CPU to it
// when every real run queue is empty. Each pass computes how many ticks can
// safely be skipped, sleeps the simulated clock that far (or until an ISR
// release wakes it early), reconciles the tick counter, then yields so a
// newly runnable thread gets first look at the CPU.
func (k *Kernel) idleLoop(self *Thread) {
	for {
		k.mu.Lock()
		ticks := k.idleSleepTicksLocked()
		k.mu.Unlock()
		if ticks == 0 {
			ticks = 1
		}

		k.cfg.SleepHook(ticks)
		k.idleSleep(ticks)

		k.Yield(self)
	}
}

// idleSleepTicksLocked bounds the idle period by MaxIdleTicks and the
// earliest timer-wheel deadline, so a software timer or thread timeout
// never fires late. Caller holds k.mu.
func (k *Kernel) idleSleepTicksLocked() uint64 {
	max := k.cfg.MaxIdleTicks
	if e := k.timerList.Front(); e != nil {
		if delta := e.Deadline - k.tick; delta < max {
			return delta
		}
	}
	return max
}

// idleSleep sleeps for up to ticks system ticks against the configured
// clock, waking early if an ISR release signals wakeIdleCh (spec.md §4.P).
// Either way it invokes WakeHook and then reconciles k.tick: on a full sleep it
// jumps the tick count forward by exactly ticks; on an early wake it
// advances only by however many whole ticks of wall time actually elapsed,
// so time ever only moves forward in truthful, tick-sized increments.
func (k *Kernel) idleSleep(ticks uint64) {
	start := k.cfg.Clock.Now()
	wakeAfter := time.Duration(ticks) * k.cfg.TickPeriod

	select {
	case <-k.cfg.Clock.After(wakeAfter):
		k.cfg.WakeHook()
		k.mu.Lock()
		k.tick += ticks
		k.cfg.EventHook(hal.EventTick, k.tick, idOf(k.idle))
		k.expireTimers()
		k.mu.Unlock()
	case <-k.wakeIdleCh:
		k.cfg.WakeHook()
		elapsed := k.cfg.Clock.Now().Sub(start)
		advanced := uint64(elapsed / k.cfg.TickPeriod)
		if advanced > ticks {
			advanced = ticks
		}
		k.mu.Lock()
		k.tick += advanced
		k.cfg.EventHook(hal.EventTick, k.tick, idOf(k.idle))
		k.expireTimers()
		k.mu.Unlock()
	}
}
