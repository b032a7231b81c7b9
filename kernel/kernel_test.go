package kernel_test

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

// log is a goroutine-safe append-only recorder. Kernel threads only ever
// run one at a time by construction, but the mutex keeps `go test -race`
// happy across the channel handoffs.
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

// TestPriorityRespect: among two ready threads, the higher-priority one
// (lower number) always runs to completion first, regardless of spawn
// order (spec.md §8 "Priority respect").
func TestPriorityRespect(t *testing.T) {
	k := newTestKernel()
	var l log

	low := k.Spawn(kernel.ThreadConfig{Name: "low", Priority: 2, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		for i := 0; i < 3; i++ {
			l.add("low")
			k.Yield(self)
		}
		return nil
	}})
	high := k.Spawn(kernel.ThreadConfig{Name: "high", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		for i := 0; i < 3; i++ {
			l.add("high")
			k.Yield(self)
		}
		return nil
	}})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		k.WaitForStop(self, low)
		k.WaitForStop(self, high)
		k.Shutdown()
		return nil
	}})

	low.Start()
	high.Start()
	driver.Start()
	k.Run()

	entries := l.get()
	require.Equal(t, []string{"high", "high", "high", "low", "low", "low"}, entries)
}

// TestRoundRobin: two threads at the same priority alternate turn by turn.
func TestRoundRobin(t *testing.T) {
	k := newTestKernel()
	var l log

	a := k.Spawn(kernel.ThreadConfig{Name: "a", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		for i := 0; i < 3; i++ {
			l.add("a")
			k.Yield(self)
		}
		return nil
	}})
	b := k.Spawn(kernel.ThreadConfig{Name: "b", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		for i := 0; i < 3; i++ {
			l.add("b")
			k.Yield(self)
		}
		return nil
	}})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		k.WaitForStop(self, a)
		k.WaitForStop(self, b)
		k.Shutdown()
		return nil
	}})

	a.Start()
	b.Start()
	driver.Start()
	k.Run()

	require.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, l.get())
}

// TestKillRunsTerminationHandler verifies Kill abandons the target's body
// and runs its termination handler instead (spec.md §4.K "Kill").
func TestKillRunsTerminationHandler(t *testing.T) {
	k := newTestKernel()
	var l log

	// victim outranks driver so it always runs first and parks itself on
	// its own Delay before driver ever gets the CPU; that removes any
	// ordering dependence on exactly when the kill lands.
	victim := k.Spawn(kernel.ThreadConfig{Name: "victim", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		for {
			k.Delay(self, 1)
			l.add("victim-woke") // should never run after the kill lands
		}
	}})
	victim.SetTerminationHandler(func(interface{}) { l.add("terminated") })

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		k.Kill(self, victim)
		k.WaitForStop(self, victim)
		k.Shutdown()
		return nil
	}})

	victim.Start()
	driver.Start()
	k.Run()

	require.Equal(t, kernel.StateStopped, victim.GetState())
	require.Equal(t, []string{"terminated"}, l.get())
}

// TestPriorityInheritance verifies a mutex owner's effective priority is
// raised while a higher-priority thread waits on it, and restored once
// released (spec.md §8 "Priority inheritance").
func TestPriorityInheritance(t *testing.T) {
	k := newTestKernel()

	// raised is a single buffered, single-send channel: safe even inside a
	// kernel thread body, since a send to a buffered channel with spare
	// capacity never blocks the underlying goroutine.
	raised := make(chan int, 1)

	// lockerReady has one independent waiter per consumer (high, driver),
	// since Sem.Post wakes only the head of its wait queue, not every
	// waiter; a single shared Sem would only ever wake one of the two.
	lockerReadyForHigh := gsync.NewSem(k, 0)
	lockerReadyForDriver := gsync.NewSem(k, 0)
	releaseLocker := gsync.NewSem(k, 0)

	mu := gsync.NewMutex(k)
	low := k.Spawn(kernel.ThreadConfig{Name: "low", Priority: 3, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		mu.Lock(self)
		lockerReadyForHigh.Post()
		lockerReadyForDriver.Post()
		releaseLocker.Wait(self)
		mu.Unlock(self)
		return nil
	}})

	high := k.Spawn(kernel.ThreadConfig{Name: "high", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		lockerReadyForHigh.Wait(self)
		mu.Lock(self)
		mu.Unlock(self)
		return nil
	}})

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		lockerReadyForDriver.Wait(self)
		for mu.WaiterCount() == 0 {
			k.Yield(self)
		}
		raised <- low.EffectivePriority()
		releaseLocker.Post()
		k.WaitForStop(self, low)
		k.WaitForStop(self, high)
		k.Shutdown()
		return nil
	}})

	low.Start()
	high.Start()
	driver.Start()
	k.Run()

	require.Equal(t, 0, <-raised) // low inherited high's priority (0) while high waited
	require.Equal(t, 3, low.NominalPriority())
	require.Equal(t, 3, low.EffectivePriority()) // restored after Unlock
}
