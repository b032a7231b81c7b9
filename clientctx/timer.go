package clientctx

import "github.com/mneedes/gomos/kernel"

// ContextTimer is the "context-timer variant" from spec.md §4.C: a software
// timer whose expiry enqueues a pre-set message on a context's queue
// instead of running arbitrary user code in the tick handler, so a client
// receives timer notifications through the ordinary message path.
type ContextTimer struct {
	ctx   *Context
	timer *kernel.TimerHandle
	msg   Message
}

// NewContextTimer binds a one-shot-per-expiry timer to ctx; firing it
// try-sends msg (clientID may be BroadcastClient) onto ctx's queue.
func NewContextTimer(ctx *Context, clientID int, kind Kind, payload interface{}) *ContextTimer {
	ct := &ContextTimer{ctx: ctx, msg: Message{Kind: kind, ClientID: clientID, Payload: payload}}
	ct.timer = ctx.k.NewTimer(func(interface{}) bool {
		ctx.q.TrySend(ct.msg)
		return true
	}, nil)
	return ct
}

// Set arms the timer to enqueue its message after period ticks.
func (ct *ContextTimer) Set(period uint64) { ct.timer.Set(period) }

// Cancel disarms the timer.
func (ct *ContextTimer) Cancel() { ct.timer.Cancel() }

// Reset re-arms the timer with its current period.
func (ct *ContextTimer) Reset() { ct.timer.Reset() }
