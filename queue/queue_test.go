package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mneedes/gomos/kernel"
	"github.com/mneedes/gomos/queue"
	gsync "github.com/mneedes/gomos/sync"
)

func newTestKernel() *kernel.Kernel {
	return kernel.New(kernel.Config{
		NumPriorities: 4,
		TickPeriod:    time.Millisecond,
		Clock:         clockwork.NewFakeClock(),
	})
}

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

// TestQueueFastPath exercises TrySend/TryReceive/Send/Len/Cap entirely
// non-blocking, from a single thread.
func TestQueueFastPath(t *testing.T) {
	k := newTestKernel()
	var q *queue.Queue[int]
	var lens []int

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		q = queue.New[int](k, 2)
		require.Equal(t, 2, q.Cap())

		require.True(t, q.TrySend(1))
		require.True(t, q.TrySend(2))
		require.False(t, q.TrySend(3)) // full
		lens = append(lens, q.Len())

		v, ok := q.TryReceive()
		require.True(t, ok)
		require.Equal(t, 1, v)

		q.Send(self, 3) // a free slot now exists; must not block
		v, ok = q.TryReceive()
		require.True(t, ok)
		require.Equal(t, 2, v)
		v, ok = q.TryReceive()
		require.True(t, ok)
		require.Equal(t, 3, v)

		_, ok = q.TryReceive()
		require.False(t, ok) // empty
		lens = append(lens, q.Len())

		k.Shutdown()
		return nil
	}})
	driver.Start()
	k.Run()

	require.Equal(t, []int{2, 0}, lens)
}

// TestQueueBlockingHandoff exercises the slow path on both ends: receiver
// blocks on an empty queue, and sender's Send wakes it. receiver outranks
// sender so it is dispatched first and guaranteed to have already blocked
// by the time sender runs.
func TestQueueBlockingHandoff(t *testing.T) {
	k := newTestKernel()
	var l log

	q := queue.New[string](k, 1)
	receiver := k.Spawn(kernel.ThreadConfig{Name: "receiver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		l.add(q.Receive(self))
		return nil
	}})
	sender := k.Spawn(kernel.ThreadConfig{Name: "sender", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		l.add("sending")
		q.Send(self, "hello")
		k.WaitForStop(self, receiver)
		k.Shutdown()
		return nil
	}})

	receiver.Start()
	sender.Start()
	k.Run()

	require.Equal(t, []string{"sending", "hello"}, l.get())
}

// TestWaitAnyAcrossQueues verifies that BindSignal lets a single WaitAny
// call service more than one queue, returning the lowest-numbered ready
// channel first and re-raising whatever other channel was also ready so a
// second WaitAny doesn't lose it.
func TestWaitAnyAcrossQueues(t *testing.T) {
	k := newTestKernel()
	var chans []int

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		sig := gsync.NewSignal(k)
		qa := queue.New[int](k, 1)
		qa.BindSignal(sig, 0)
		qb := queue.New[int](k, 1)
		qb.BindSignal(sig, 1)

		require.True(t, qb.TrySend(99))
		ch, ok := queue.WaitAny(self, sig, -1)
		require.True(t, ok)
		chans = append(chans, ch)
		v, ok := qb.TryReceive()
		require.True(t, ok)
		require.Equal(t, 99, v)

		require.True(t, qa.TrySend(1))
		require.True(t, qb.TrySend(2))
		ch1, ok := queue.WaitAny(self, sig, -1)
		require.True(t, ok)
		ch2, ok := queue.WaitAny(self, sig, -1)
		require.True(t, ok)
		chans = append(chans, ch1, ch2)

		k.Shutdown()
		return nil
	}})
	driver.Start()
	k.Run()

	require.Equal(t, []int{1, 0, 1}, chans)
}

// TestWaitAnyTimeout verifies WaitAny reports ok == false when nothing
// arrives before the deadline.
func TestWaitAnyTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	k := kernel.New(kernel.Config{NumPriorities: 4, TickPeriod: time.Millisecond, Clock: clock})
	var ch int
	var ok bool

	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		sig := gsync.NewSignal(k)
		ch, ok = queue.WaitAny(self, sig, 3)
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
	clock.Advance(3 * time.Millisecond)
	<-done

	require.False(t, ok)
	require.Equal(t, -1, ch)
}
