package sync_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mneedes/gomos/kernel"
	gsync "github.com/mneedes/gomos/sync"
)

func newTestKernel() *kernel.Kernel {
	return kernel.New(kernel.Config{
		NumPriorities: 4,
		TickPeriod:    time.Millisecond,
		Clock:         clockwork.NewFakeClock(),
	})
}

// log is a goroutine-safe append-only recorder, kept local to this package's
// tests for the same reason kernel_test.go carries its own copy: kernel
// threads run one at a time by construction, but the mutex keeps `go test
// -race` happy across the channel handoffs between them.
type log struct {
	mu      sync.Mutex
	entries []string
}

func (l *log) add(s string) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

func (l *log) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func TestMutexRecursion(t *testing.T) {
	k := newTestKernel()
	mu := gsync.NewMutex(k)
	var depth1, depth2 int

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		mu.Lock(self)
		depth1 = mu.Depth()
		mu.Lock(self)
		depth2 = mu.Depth()
		mu.Unlock(self)
		mu.Unlock(self)
		k.Shutdown()
		return nil
	}})
	driver.Start()
	k.Run()

	require.Equal(t, 1, depth1)
	require.Equal(t, 2, depth2)
	require.Equal(t, 0, mu.Depth())
	require.Nil(t, mu.Owner())
}

// TestMutexRestoreAndIsOwner verifies Restore releases regardless of
// recursion depth and is a silent no-op for a non-owner, unlike Unlock.
func TestMutexRestoreAndIsOwner(t *testing.T) {
	k := newTestKernel()
	mu := gsync.NewMutex(k)
	var ownedBySelf, ownedByOther bool

	other := k.Spawn(kernel.ThreadConfig{Name: "other", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		return nil
	}})

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		mu.Restore(self) // not owned yet: silent no-op, no assert

		mu.Lock(self)
		mu.Lock(self) // depth 2
		ownedBySelf = mu.IsOwner(self)
		ownedByOther = mu.IsOwner(other)

		mu.Restore(self) // releases outright, ignoring the recursion depth
		k.Shutdown()
		return nil
	}})

	driver.Start()
	k.Run()

	require.True(t, ownedBySelf)
	require.False(t, ownedByOther)
	require.Equal(t, 0, mu.Depth())
	require.Nil(t, mu.Owner())
}

// TestMutexHandoffOrder verifies that when a mutex is released with more
// than one waiter parked, the highest-priority waiter acquires it next,
// regardless of the order the waiters arrived in. low holds the lowest
// priority of the three and so spawns and releases the other two itself
// from inside its own body, using its own loss of the CPU on each Yield as
// the synchronization point instead of a polling loop at a priority that
// could starve them.
func TestMutexHandoffOrder(t *testing.T) {
	k := newTestKernel()
	var l log

	mu := gsync.NewMutex(k)
	var midT, highT *kernel.Thread

	low := k.Spawn(kernel.ThreadConfig{Name: "low", Priority: 3, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		mu.Lock(self)

		// mid arrives (and blocks on mu) first, but high outranks it.
		midT = k.SpawnAndStart(kernel.ThreadConfig{Name: "mid", Priority: 2, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
			mu.Lock(self)
			l.add("mid")
			mu.Unlock(self)
			return nil
		}})
		k.Yield(self) // mid outranks low; it runs now and blocks on mu

		highT = k.SpawnAndStart(kernel.ThreadConfig{Name: "high", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
			mu.Lock(self)
			l.add("high")
			mu.Unlock(self)
			return nil
		}})
		k.Yield(self) // high outranks low; it runs now and blocks on mu

		mu.Unlock(self)
		k.WaitForStop(self, midT)
		k.WaitForStop(self, highT)
		k.Shutdown()
		return nil
	}})

	low.Start()
	k.Run()

	require.Equal(t, []string{"high", "mid"}, l.get())
}

func TestSemTryWait(t *testing.T) {
	k := newTestKernel()
	s := gsync.NewSem(k, 1)

	require.True(t, s.TryWait())
	require.False(t, s.TryWait())
	require.Equal(t, 0, s.Value())

	s.Post()
	require.Equal(t, 1, s.Value())
	require.True(t, s.TryWait())
}

// TestSemBlockingHandoff exercises the slow path: a waiter parks on an
// empty semaphore, and a separate thread's Post wakes it. waiter outranks
// driver, so it is always dispatched first and is guaranteed to have
// already blocked on s by the time driver ever gets the CPU — no polling
// loop required (and one at driver's priority would only ever starve
// waiter, since strict priority scheduling never demotes a ready
// higher-priority thread in driver's favor).
func TestSemBlockingHandoff(t *testing.T) {
	k := newTestKernel()
	var l log

	s := gsync.NewSem(k, 0)
	waiter := k.Spawn(kernel.ThreadConfig{Name: "waiter", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		s.Wait(self)
		l.add("woke")
		return nil
	}})

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		l.add("posting")
		s.Post()
		k.WaitForStop(self, waiter)
		k.Shutdown()
		return nil
	}})

	waiter.Start()
	driver.Start()
	k.Run()

	require.Equal(t, []string{"posting", "woke"}, l.get())
}

// TestSemWaitTimeout drives a real timeout to expiry: driver is the only
// application thread, so the idle thread takes over and programs tickless
// idle to sleep exactly until the timeout's deadline. The fake clock must
// be advanced from outside the kernel (Run blocks this goroutine until
// Shutdown), so Run is driven from a background goroutine and
// clock.BlockUntil(1) confirms idle has actually registered its sleep
// before the test fast-forwards it.
func TestSemWaitTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	k := kernel.New(kernel.Config{NumPriorities: 4, TickPeriod: time.Millisecond, Clock: clock})
	s := gsync.NewSem(k, 0)
	var timedOut bool

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		timedOut = s.WaitTimeout(self, 5)
		k.Shutdown()
		return nil
	}})
	driver.Start()

	done := make(chan struct{})
	go func() {
		k.Run()
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Millisecond)
	<-done

	require.True(t, timedOut)
	require.Equal(t, uint64(5), k.TickCount())
}

func TestSignalRaisePoll(t *testing.T) {
	k := newTestKernel()
	sig := gsync.NewSignal(k)

	require.Equal(t, uint32(0), sig.Poll())
	sig.Raise(0b101)
	sig.Raise(0b010) // idempotent OR, accumulates rather than overwrites
	require.Equal(t, uint32(0b111), sig.Poll())
	require.Equal(t, uint32(0), sig.Poll())
}

func TestSignalBlockingWait(t *testing.T) {
	k := newTestKernel()
	sig := gsync.NewSignal(k)
	var observed uint32

	waiter := k.Spawn(kernel.ThreadConfig{Name: "waiter", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		observed = sig.Wait(self)
		return nil
	}})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		sig.Raise(gsync.ChannelBit(2))
		k.WaitForStop(self, waiter)
		k.Shutdown()
		return nil
	}})

	waiter.Start()
	driver.Start()
	k.Run()

	require.Equal(t, gsync.ChannelBit(2), observed)
	require.Equal(t, 2, gsync.NextChannel(observed))
	require.Equal(t, uint32(0), gsync.ClearChannel(observed, 2))
}

func TestTimerPeriodic(t *testing.T) {
	k := newTestKernel()
	fires := 0
	timer := gsync.NewTimer(k, func(interface{}) bool {
		fires++
		return false
	}, nil)
	timer.Set(5)

	k.AdvanceTickCount(4)
	require.Equal(t, 0, fires)
	k.AdvanceTickCount(1)
	require.Equal(t, 1, fires)
	k.AdvanceTickCount(5)
	require.Equal(t, 2, fires)

	timer.Cancel()
	k.AdvanceTickCount(10)
	require.Equal(t, 2, fires)
}

func TestTimerOneShotAndReset(t *testing.T) {
	k := newTestKernel()
	fires := 0
	timer := gsync.NewTimer(k, func(interface{}) bool {
		fires++
		return true
	}, nil)
	timer.Set(3)

	k.AdvanceTickCount(2)
	timer.Reset() // re-arms for 3 more ticks from now, not from the original deadline
	k.AdvanceTickCount(2)
	require.Equal(t, 0, fires)
	k.AdvanceTickCount(1)
	require.Equal(t, 1, fires)
}
