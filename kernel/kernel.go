// Package kernel implements the scheduler and thread lifecycle (spec.md
// §4.K), folding in the timer wheel (§4.T) that the tick handler and idle
// loop consult. It is the teacher's runtime/proc.go (the goroutine
// scheduler) and runtime/time.go-style timer list, re-expressed as an
// explicit, inspectable data structure instead of compiler-privileged
// runtime state — see SPEC_FULL.md for why threads are goroutines gated by
// a scheduling baton rather than real stack-switched contexts.
package kernel

import (
	"fmt"
	"sync"
	"time"

	"github.com/mneedes/gomos/hal"
	"github.com/mneedes/gomos/list"
)

// Kernel is the scheduler: run queues, the merged timer wheel, the ISR
// event queue, and thread bookkeeping. All of it is owned by k.mu; this
// single lock stands in for the two interrupt-masking tiers ("raise base
// priority" for mutex/timer state, "disable interrupts" for semaphore/
// event-queue state) spec.md §5 describes — a deliberate simplification
// recorded in DESIGN.md, since Go offers no equivalent of interrupt
// priority levels to mirror the split faithfully.
type Kernel struct {
	cfg Config
	mu  sync.Mutex

	runQueues []*list.List
	timerList *list.List
	isrEvents []*WaitQueue

	tick      uint64
	startTime time.Time

	threads map[int]*Thread
	nextID  int
	running *Thread
	idle    *Thread

	wakeIdleCh chan struct{}
	tickPaused bool

	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs a Kernel. Call Spawn for each application thread, then
// Run to start scheduling; Run does not return until Shutdown is called.
func New(cfg Config) *Kernel {
	cfg.setDefaults()
	k := &Kernel{
		cfg:        cfg,
		timerList:  list.New(),
		threads:    make(map[int]*Thread),
		wakeIdleCh: make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	k.runQueues = make([]*list.List, cfg.NumPriorities+1) // + idle level
	for i := range k.runQueues {
		k.runQueues[i] = list.New()
	}
	k.startTime = cfg.Clock.Now()
	k.idle = k.spawnLocked(ThreadConfig{
		Name:       "idle",
		Priority:   k.idlePriority(),
		StackWords: 64,
		Fn:         idleEntry,
	})
	k.idle.Start()
	return k
}

// WaitQueue is the pend-queue + ISR-event-link pair shared by counting
// semaphores and signals (spec.md §3: "single event link indicating
// presence on the ISR event queue"). sync.Mutex uses its own bare pend
// list instead, since a mutex is never released from an ISR.
type WaitQueue struct {
	pend    *list.List
	onEvent bool
}

// NewWaitQueue returns an empty WaitQueue.
func NewWaitQueue() *WaitQueue { return &WaitQueue{pend: list.New()} }

// WaitQueueLen reports the number of waiters currently parked on wq. It
// takes the kernel lock itself, so the caller must not hold it (that lock is
// also the one the owning primitive uses for its own count/value).
func (k *Kernel) WaitQueueLen(wq *WaitQueue) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return wq.pend.Len()
}

// --- thread creation -------------------------------------------------

// Spawn creates a thread in StateInit. Call Start to make it runnable.
func (k *Kernel) Spawn(cfg ThreadConfig) *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.spawnLocked(cfg)
}

func (k *Kernel) spawnLocked(cfg ThreadConfig) *Thread {
	if cfg.StackWords <= 0 {
		cfg.StackWords = 256
	}
	k.nextID++
	t := &Thread{
		k:                 k,
		id:                k.nextID,
		name:              cfg.Name,
		nominalPriority:   cfg.Priority,
		effectivePriority: cfg.Priority,
		state:             StateInit,
		fn:                cfg.Fn,
		arg:               cfg.Arg,
		stackWords:        cfg.StackWords,
		stackHighWord:     cfg.StackWords,
		stopWaiters:       list.New(),
		resumeCh:          make(chan struct{}, 1),
	}
	k.threads[t.id] = t
	return t
}

// SpawnAndStart is Spawn followed by Start, matching spec.md §6's
// "init-and-run" convenience entry.
func (k *Kernel) SpawnAndStart(cfg ThreadConfig) *Thread {
	t := k.Spawn(cfg)
	t.Start()
	return t
}

// Start transitions a thread from StateInit to StateRunnable and enqueues
// it. It also launches the goroutine backing the thread; the goroutine
// blocks immediately on the thread's resume baton until the scheduler
// chooses it.
func (t *Thread) Start() {
	k := t.k
	k.mu.Lock()
	if t.state != StateInit {
		k.mu.Unlock()
		return
	}
	t.state = StateRunnable
	t.runElem = k.runQueues[t.effectivePriority].PushBack(&list.Element{Value: t})
	k.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(killSignal); ok {
					k.finishKilled(t)
					return
				}
				panic(r)
			}
		}()
		<-t.resumeCh
		ret := t.fn(t, t.arg)
		k.threadExit(t, ret)
	}()
}

func idleEntry(self *Thread, _ interface{}) interface{} {
	self.k.idleLoop(self)
	return nil
}

// --- run-queue / priority helpers (k.mu must be held) -----------------

func (k *Kernel) runQueueOf(t *Thread) *list.List {
	return k.runQueues[t.effectivePriority]
}

func (k *Kernel) enqueueRunnable(t *Thread, front bool) {
	t.state = StateRunnable
	q := k.runQueueOf(t)
	if front {
		t.runElem = q.PushFront(&list.Element{Value: t})
	} else {
		t.runElem = q.PushBack(&list.Element{Value: t})
	}
}

func (k *Kernel) removeFromRunQueue(t *Thread) {
	if t.runElem != nil {
		k.runQueueOf(t).Remove(t.runElem)
		t.runElem = nil
	}
}

// insertPendByPriority keeps a mutex/semaphore/signal pend queue ordered
// ascending by waiter effective priority (lowest number first), per
// spec.md §3.
func insertPendByPriority(q *list.List, t *Thread) *list.Element {
	for mark := q.Front(); mark != nil; mark = mark.Next() {
		if t.effectivePriority < mark.Value.(*Thread).effectivePriority {
			e := &list.Element{Value: t}
			q.InsertBefore(e, mark)
			return e
		}
	}
	e := &list.Element{Value: t}
	q.PushBack(e)
	return e
}

func (k *Kernel) removeFromTimer(t *Thread) {
	if t.timerElem != nil {
		k.timerList.Remove(t.timerElem)
		t.timerElem = nil
		t.hasTimeout = false
	}
}

func (k *Kernel) removeFromPend(t *Thread) {
	if t.pendElem != nil && t.blockedOn != nil {
		t.blockedOn.Remove(t.pendElem)
	}
	t.pendElem = nil
	t.blockedOn = nil
}

func (k *Kernel) threadf(t *Thread) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%d)", t.name, t.id)
}
