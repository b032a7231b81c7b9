package kernel

import "github.com/mneedes/gomos/list"

// State is a thread's lifecycle state, per spec.md §3.
type State int

const (
	StateUninit State = iota
	StateInit
	StateRunnable
	StateWaitMutex
	StateWaitSem
	StateWaitSemOrTick
	StateWaitStop
	StateWaitStopOrTick
	StateWaitTick
	StateTimeToStop
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "UNINIT"
	case StateInit:
		return "INIT"
	case StateRunnable:
		return "RUNNABLE"
	case StateWaitMutex:
		return "WAIT_FOR_MUTEX"
	case StateWaitSem:
		return "WAIT_FOR_SEM"
	case StateWaitSemOrTick:
		return "WAIT_FOR_SEM_OR_TICK"
	case StateWaitStop:
		return "WAIT_FOR_STOP"
	case StateWaitStopOrTick:
		return "WAIT_FOR_STOP_OR_TICK"
	case StateWaitTick:
		return "WAIT_FOR_TICK"
	case StateTimeToStop:
		return "TIME_TO_STOP"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// EntryFunc is a thread's entry point. The argument is whatever was passed
// to Spawn; the return value becomes the thread's ReturnValue() once it has
// stopped, mirroring a real thread function's register-based return value.
type EntryFunc func(self *Thread, arg interface{}) interface{}

// ThreadConfig configures a new thread. Name and StackWords are advisory
// (there is no real stack to size in this simulator; StackWords only feeds
// StackHighWaterMark bookkeeping for API parity with the firmware original).
type ThreadConfig struct {
	Name       string
	Priority   int
	StackWords int
	Fn         EntryFunc
	Arg        interface{}
}

// Thread is a schedulable entity: a goroutine gated by a scheduling baton
// (resumeCh), a nominal and effective priority, and the bookkeeping the
// scheduler needs to keep it on at most one queue at a time.
//
// A Thread is never copied after Spawn; all mutation of its scheduling state
// goes through methods that hold the kernel lock, matching the "run queues / pend queues
// are private state, mutated only under the appropriate critical section"
// rule from spec.md §5.
type Thread struct {
	k    *Kernel
	id   int
	name string

	nominalPriority   int
	effectivePriority int
	inherited         bool

	state    State
	fn       EntryFunc
	arg      interface{}
	retVal   interface{}
	timedOut bool

	termHandler func(arg interface{})
	termArg     interface{}

	userData interface{}

	stackWords    int
	stackHighWord int

	// blockedOn is the pend queue the thread currently sits on (nil if
	// RUNNABLE, running, or stopped). It lets SetPriority resort the
	// thread's position on whatever it is waiting for.
	blockedOn *list.List

	stopWaiters *list.List // threads parked in WaitForStop on this thread

	hasTimeout bool
	wakeTick   uint64

	// faultReason records the message from the Assert/HardFault call that
	// last force-stopped this thread, empty otherwise.
	faultReason string

	runElem   *list.Element // membership in k.runQueues[priority]
	pendElem  *list.Element // membership in blockedOn
	timerElem *list.Element // membership in k.timerList (Tag = TagThread)

	resumeCh chan struct{}
}

// ID returns the thread's kernel-assigned identifier.
func (t *Thread) ID() int { return t.id }

// Name returns the thread's advisory name.
func (t *Thread) Name() string { return t.name }

// EffectivePriority returns the thread's current effective priority
// (possibly raised above its nominal priority by mutex inheritance).
func (t *Thread) EffectivePriority() int { return t.effectivePriority }

// NominalPriority returns the thread's configured priority, unaffected by
// inheritance.
func (t *Thread) NominalPriority() int { return t.nominalPriority }

// TimedOut reports whether the thread's most recent wait ended because its
// timeout elapsed rather than because the awaited event occurred.
func (t *Thread) TimedOut() bool { return t.timedOut }

// ReturnValue returns the value the thread's entry function returned. Valid
// once GetState() == StateStopped.
func (t *Thread) ReturnValue() interface{} { return t.retVal }

// UserData returns the thread's free-form user data slot.
func (t *Thread) UserData() interface{} { return t.userData }

// SetUserData sets the thread's free-form user data slot.
func (t *Thread) SetUserData(v interface{}) { t.userData = v }

// SetTerminationHandler sets the function run (at the thread's original
// priority) when the thread is killed, by Kill or by a failed Assert or
// HardFault. A thread whose entry function returns normally does not run it.
func (t *Thread) SetTerminationHandler(fn func(arg interface{})) {
	t.k.mu.Lock()
	t.termHandler = fn
	t.k.mu.Unlock()
}

// SetTerminationArg sets the argument passed to the termination handler.
func (t *Thread) SetTerminationArg(arg interface{}) {
	t.k.mu.Lock()
	t.termArg = arg
	t.k.mu.Unlock()
}

// FaultReason returns the message from the Assert or HardFault call that
// last force-stopped this thread, or "" if it has never faulted.
func (t *Thread) FaultReason() string {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.faultReason
}

// StackHighWaterMark returns the thread's recorded stack usage in words,
// StackWords minus the lowest-free-word mark. Goroutine stacks are not
// directly inspectable and nothing in the kernel updates that mark after
// Spawn, so the value is always 0.
func (t *Thread) StackHighWaterMark() int {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.stackWords - t.stackHighWord
}
