package kernel

import "fmt"

// Assert is the category (i) programmer-error path (spec.md §7/§8): "prints,
// optionally induces a hardware crash, and force-transitions the running
// thread to TIME_TO_STOP." Every primitive in sync/queue/clientctx that
// detects caller misuse (unlock by a non-owner, double free, bad argument)
// funnels through this instead of returning an error, matching the
// original's assertion discipline rather than Go's usual error-return idiom
// for what the spec treats as a non-recoverable logic bug.
func (k *Kernel) Assert(self *Thread, cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	k.cfg.Sink.WriteRaw([]byte("ASSERT: " + msg + "\n"))
	k.cfg.CrashInducer(msg)
	k.killRunning(self, msg)
}

// FaultAction selects what HardFault does once it has reported the fault,
// mirroring the "hangs or marks the running thread TIME_TO_STOP depending
// on configuration" split in spec.md §7 for category (iv) hardware faults.
type FaultAction int

const (
	// FaultKillThread force-stops the faulting thread and lets the
	// scheduler carry on; used when self is a non-nil application thread.
	FaultKillThread FaultAction = iota
	// FaultHang parks forever, modeling a fault taken in an ISR or before
	// the scheduler has started, where there is no thread to kill.
	FaultHang
)

// HardFault reports a category (iv) hardware fault (bus, memory, usage,
// security) and applies action. It never returns when action is FaultHang.
func (k *Kernel) HardFault(self *Thread, action FaultAction, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	k.cfg.Sink.WriteRaw([]byte("HARDFAULT: " + msg + "\n"))
	k.cfg.CrashInducer(msg)
	if action == FaultHang {
		select {}
	}
	k.killRunning(self, msg)
}

// killRunning force-transitions self to TIME_TO_STOP and unwinds it the
// same way Kill does for a self-kill, recording msg as its termination
// reason. self must be the thread currently occupying the CPU; a nil self
// (a fault before the scheduler started, or from a simulated ISR with no
// current thread) has no thread to kill, so killRunning hangs forever.
func (k *Kernel) killRunning(self *Thread, msg string) {
	if self == nil {
		select {}
	}
	k.mu.Lock()
	k.removeFromPend(self)
	k.removeFromTimer(self)
	k.removeFromRunQueue(self)
	self.state = StateTimeToStop
	self.faultReason = msg
	k.mu.Unlock()
	panic(killSignal{})
}
