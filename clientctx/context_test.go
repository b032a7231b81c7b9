package clientctx_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mneedes/gomos/clientctx"
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

const userKind clientctx.Kind = 1

// TestContextDeliversInOrder sends three messages to one client, followed
// by a StopContext broadcast, and checks they arrive in FIFO order before
// the client's final StopClient callback. driver outranks the context's
// own backing thread, so every Send either completes immediately (room in
// the queue) or, once the queue is full, blocks and hands the CPU to the
// context thread to drain it — exactly the handoff queue.Queue's blocking
// tests already cover, exercised here through the higher-level API.
func TestContextDeliversInOrder(t *testing.T) {
	k := newTestKernel()
	var received []clientctx.Message

	ctx := clientctx.NewContext(k, 1) // capacity 1: every Send past the first must block
	cl := ctx.AddClient(func(_ *clientctx.Context, _ *clientctx.Client, msg clientctx.Message) bool {
		received = append(received, msg)
		return true
	}, nil)

	ctxThread := k.Spawn(kernel.ThreadConfig{Name: "ctx", Priority: 1, Fn: ctx.Run})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		ctx.Send(self, cl.ID(), userKind, "a")
		ctx.Send(self, cl.ID(), userKind, "b")
		ctx.Send(self, cl.ID(), userKind, "c")
		ctx.Send(self, clientctx.BroadcastClient, clientctx.KindStopContext, nil)
		k.WaitForStop(self, ctxThread)
		k.Shutdown()
		return nil
	}})

	ctxThread.Start()
	driver.Start()
	k.Run()

	require.Len(t, received, 4) // a, b, c, then the StopClient callback
	require.Equal(t, "a", received[0].Payload)
	require.Equal(t, "b", received[1].Payload)
	require.Equal(t, "c", received[2].Payload)
	require.Equal(t, clientctx.KindStop, received[3].Kind)
}

// TestContextDiscardsMessagesAfterStopContext verifies that a message
// enqueued behind a StopContext broadcast never reaches a handler: driver
// outranks the context thread, so every TrySend below lands in the queue
// before ctx.Run ever gets the CPU, letting the test enqueue "trailing"
// behind the stop in a single batch.
func TestContextDiscardsMessagesAfterStopContext(t *testing.T) {
	k := newTestKernel()
	var received []clientctx.Message

	ctx := clientctx.NewContext(k, 4)
	ctx.AddClient(func(_ *clientctx.Context, _ *clientctx.Client, msg clientctx.Message) bool {
		received = append(received, msg)
		return true
	}, nil)

	ctxThread := k.Spawn(kernel.ThreadConfig{Name: "ctx", Priority: 1, Fn: ctx.Run})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		require.True(t, ctx.TrySend(0, userKind, "before"))
		require.True(t, ctx.TrySend(clientctx.BroadcastClient, clientctx.KindStopContext, nil))
		require.True(t, ctx.TrySend(0, userKind, "trailing"))
		k.WaitForStop(self, ctxThread)
		k.Shutdown()
		return nil
	}})

	ctxThread.Start()
	driver.Start()
	k.Run()

	require.Len(t, received, 2) // "before", then the StopClient callback
	require.Equal(t, "before", received[0].Payload)
	require.Equal(t, clientctx.KindStop, received[1].Kind)
}

// TestContextBroadcast verifies a non-stop broadcast message reaches every
// attached client.
func TestContextBroadcast(t *testing.T) {
	k := newTestKernel()
	var seenA, seenB bool

	ctx := clientctx.NewContext(k, 4)
	ctx.AddClient(func(_ *clientctx.Context, _ *clientctx.Client, msg clientctx.Message) bool {
		if msg.Kind == userKind {
			seenA = true
		}
		return true
	}, nil)
	ctx.AddClient(func(_ *clientctx.Context, _ *clientctx.Client, msg clientctx.Message) bool {
		if msg.Kind == userKind {
			seenB = true
		}
		return true
	}, nil)

	ctxThread := k.Spawn(kernel.ThreadConfig{Name: "ctx", Priority: 1, Fn: ctx.Run})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		ctx.Send(self, clientctx.BroadcastClient, userKind, nil)
		ctx.Send(self, clientctx.BroadcastClient, clientctx.KindStopContext, nil)
		k.WaitForStop(self, ctxThread)
		k.Shutdown()
		return nil
	}})

	ctxThread.Start()
	driver.Start()
	k.Run()

	require.True(t, seenA)
	require.True(t, seenB)
}

// TestContextResumeOnFalse verifies that a handler returning false gets a
// KindResume message re-delivered once other traffic has drained, rather
// than blocking the shared context thread. done synchronizes the
// StopContext send with the resumed delivery, since otherwise it could race
// ahead of the already-enqueued resume message.
func TestContextResumeOnFalse(t *testing.T) {
	k := newTestKernel()
	attempts := 0
	var order []int
	done := gsync.NewSem(k, 0)

	ctx := clientctx.NewContext(k, 4)
	cl := ctx.AddClient(func(_ *clientctx.Context, _ *clientctx.Client, msg clientctx.Message) bool {
		if msg.Kind == clientctx.KindStop {
			return true // the final StopClient notification, not a retry
		}
		attempts++
		order = append(order, attempts)
		if attempts < 2 {
			return false
		}
		done.Post()
		return true
	}, nil)

	ctxThread := k.Spawn(kernel.ThreadConfig{Name: "ctx", Priority: 1, Fn: ctx.Run})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		ctx.Send(self, cl.ID(), userKind, nil)
		done.Wait(self)
		ctx.Send(self, clientctx.BroadcastClient, clientctx.KindStopContext, nil)
		k.WaitForStop(self, ctxThread)
		k.Shutdown()
		return nil
	}})

	ctxThread.Start()
	driver.Start()
	k.Run()

	require.Equal(t, []int{1, 2}, order)
}

// TestContextTimerFires verifies a ContextTimer's expiry enqueues its
// pre-set message on the context's queue rather than running arbitrary code
// in the tick handler. As in TestSemWaitTimeout, the fake clock is advanced
// from outside the kernel, so Run is driven from a background goroutine.
func TestContextTimerFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	k := kernel.New(kernel.Config{NumPriorities: 4, TickPeriod: time.Millisecond, Clock: clock})

	var gotMsg clientctx.Message
	gotSem := gsync.NewSem(k, 0)

	ctx := clientctx.NewContext(k, 2)
	ctx.AddClient(func(_ *clientctx.Context, _ *clientctx.Client, msg clientctx.Message) bool {
		if msg.Kind == userKind {
			gotMsg = msg
			gotSem.Post()
		}
		return true
	}, nil)
	timer := clientctx.NewContextTimer(ctx, clientctx.BroadcastClient, userKind, "tick!")
	timer.Set(4)

	ctxThread := k.Spawn(kernel.ThreadConfig{Name: "ctx", Priority: 1, Fn: ctx.Run})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		gotSem.Wait(self)
		ctx.Send(self, clientctx.BroadcastClient, clientctx.KindStopContext, nil)
		k.WaitForStop(self, ctxThread)
		k.Shutdown()
		return nil
	}})

	ctxThread.Start()
	driver.Start()

	done := make(chan struct{})
	go func() {
		k.Run()
		close(done)
	}()
	clock.BlockUntil(1)
	clock.Advance(4 * time.Millisecond)
	<-done

	require.Equal(t, userKind, gotMsg.Kind)
	require.Equal(t, "tick!", gotMsg.Payload)
}
