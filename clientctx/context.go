// Package clientctx implements the client context from spec.md §4.C: one
// scheduler thread owning a fixed-capacity message queue, multiplexing any
// number of message-driven client handlers through it. It is built directly
// on queue.Queue and kernel.Kernel; it adds no new blocking primitive of
// its own.
package clientctx

import (
	"github.com/mneedes/gomos/kernel"
	"github.com/mneedes/gomos/queue"
)

// Kind identifies a message's purpose. Non-negative values are
// user-defined, matching spec.md §4.C ("user-defined IDs beginning at 0");
// the context's own control messages use negative sentinels so the two
// spaces never collide.
type Kind int

const (
	KindStart       Kind = -1 // StartClient
	KindStop        Kind = -2 // StopClient
	KindResume      Kind = -3 // ResumeClient
	KindStopContext Kind = -4 // StopContext
)

// BroadcastClient is the "null client" address: a message sent to it is
// delivered to every attached client in turn.
const BroadcastClient = -1

// Message is one entry on a context's queue.
type Message struct {
	Kind     Kind
	ClientID int
	Payload  interface{}
}

// HandlerFunc is a client's message handler. Returning false means "could
// not complete; call me again after other traffic has had a chance to
// drain" (spec.md §4.C); the context then re-enqueues a ResumeClient
// message addressed to the client behind whatever is already queued.
// Returning true means processing is complete.
type HandlerFunc func(ctx *Context, c *Client, msg Message) bool

// Client is a handler function plus its private data, attached to exactly
// one Context.
type Client struct {
	id      int
	handler HandlerFunc
	data    interface{}
}

// ID returns the client's context-local identifier.
func (c *Client) ID() int { return c.id }

// Data returns the client's private pointer, set at AddClient time.
func (c *Client) Data() interface{} { return c.data }

// Context is one backing thread multiplexing its attached clients through a
// shared message queue.
type Context struct {
	k       *kernel.Kernel
	q       *queue.Queue[Message]
	clients []*Client
	nextID  int
}

// NewContext returns a Context with a queue of the given capacity. Attach
// clients with AddClient, then run it with SpawnAndStart-style usage:
// k.SpawnAndStart(kernel.ThreadConfig{Fn: ctx.Run, Priority: p}).
func NewContext(k *kernel.Kernel, capacity int) *Context {
	return &Context{k: k, q: queue.New[Message](k, capacity)}
}

// AddClient attaches a new client with the given handler and private data
// and returns it. Must be called before the context's thread starts
// running; the client list itself is not synchronized.
func (ctx *Context) AddClient(handler HandlerFunc, data interface{}) *Client {
	c := &Client{id: ctx.nextID, handler: handler, data: data}
	ctx.nextID++
	ctx.clients = append(ctx.clients, c)
	return c
}

// Send enqueues a message addressed to clientID (or BroadcastClient),
// blocking self if the queue is full. Only call this from a thread other
// than the context's own backing thread; see TrySend for use inside a
// handler.
func (ctx *Context) Send(self *kernel.Thread, clientID int, kind Kind, payload interface{}) {
	ctx.q.Send(self, Message{Kind: kind, ClientID: clientID, Payload: payload})
}

// TrySend enqueues a message without blocking, as required from inside a
// handler or from an ISR (spec.md §4.C). It returns false if the queue is
// full.
func (ctx *Context) TrySend(clientID int, kind Kind, payload interface{}) bool {
	return ctx.q.TrySend(Message{Kind: kind, ClientID: clientID, Payload: payload})
}

// drain discards whatever is still queued once StopContext has been
// delivered, freeing any sender blocked on a full queue (spec.md §4.C:
// "messages that follow a StopContext in the queue are silently
// discarded").
func (ctx *Context) drain() {
	for {
		if _, ok := ctx.q.TryReceive(); !ok {
			return
		}
	}
}

func (ctx *Context) findClient(id int) *Client {
	for _, c := range ctx.clients {
		if c.id == id {
			return c
		}
	}
	return nil
}

// Run is the context's entry function: repeatedly receive one message and
// dispatch it (spec.md §4.C "delivery loop"). It returns once a broadcast
// StopContext message has been delivered to every client as StopClient.
func (ctx *Context) Run(self *kernel.Thread, _ interface{}) interface{} {
	for {
		msg := ctx.q.Receive(self)

		if msg.ClientID == BroadcastClient {
			if msg.Kind == KindStopContext {
				for _, c := range ctx.clients {
					c.handler(ctx, c, Message{Kind: KindStop, ClientID: c.id})
				}
				ctx.drain()
				return nil
			}
			for _, c := range ctx.clients {
				c.handler(ctx, c, msg)
			}
			continue
		}

		c := ctx.findClient(msg.ClientID)
		if c == nil {
			continue
		}
		if !c.handler(ctx, c, msg) {
			// Must not block the shared thread; if the queue is
			// momentarily full the resume is dropped; the producer side
			// reserving headroom for control traffic is the caller's
			// responsibility, same as the original firmware's fixed
			// queue sizing.
			ctx.q.TrySend(Message{Kind: KindResume, ClientID: c.id})
		}
	}
}
