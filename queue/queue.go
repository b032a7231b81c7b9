// Package queue implements the fixed-capacity blocking queue from
// spec.md §4.Q: a ring buffer built from two counting semaphores (tail-sem
// starts at capacity, head-sem starts at zero), with an optional bound
// signal channel so several queues can be polled together through a single
// wait (spec.md §4.Q "multi-queue waits").
package queue

import (
	"github.com/mneedes/gomos/kernel"
	gsync "github.com/mneedes/gomos/sync"
)

// Queue is a fixed-capacity FIFO of element type T.
type Queue[T any] struct {
	k    *kernel.Kernel
	buf  []T
	head int
	tail int

	tailSem *gsync.Sem // free slots
	headSem *gsync.Sem // filled slots

	bound   *gsync.Signal
	channel int
}

// New returns an empty queue of the given capacity.
func New[T any](k *kernel.Kernel, capacity int) *Queue[T] {
	return &Queue[T]{
		k:       k,
		buf:     make([]T, capacity),
		tailSem: gsync.NewSem(k, capacity),
		headSem: gsync.NewSem(k, 0),
	}
}

// BindSignal arranges for every successful Send (and TrySend) to also raise
// channel on sig, so a thread can WaitAny across several queues instead of
// polling each one in turn.
func (q *Queue[T]) BindSignal(sig *gsync.Signal, channel int) {
	q.bound = sig
	q.channel = channel
}

// Send blocks self until a slot is free, copies v into the buffer, and
// raises the bound signal channel if one is set.
func (q *Queue[T]) Send(self *kernel.Thread, v T) {
	q.tailSem.Wait(self)
	q.pushLocked(v)
	q.headSem.Post()
	q.raiseBound()
}

// SendTimeout is Send bounded by timeoutTicks ticks; it returns true if the
// timeout elapsed before a slot became free, in which case v was not
// enqueued.
func (q *Queue[T]) SendTimeout(self *kernel.Thread, v T, timeoutTicks int64) bool {
	if q.tailSem.WaitTimeout(self, timeoutTicks) {
		return true
	}
	q.pushLocked(v)
	q.headSem.Post()
	q.raiseBound()
	return false
}

// TrySend enqueues v without blocking. It returns false if the queue is
// full. ISR-safe.
func (q *Queue[T]) TrySend(v T) bool {
	if !q.tailSem.TryWait() {
		return false
	}
	q.pushLocked(v)
	q.headSem.Post()
	q.raiseBound()
	return true
}

// Receive blocks self until an element is available and returns it.
func (q *Queue[T]) Receive(self *kernel.Thread) T {
	q.headSem.Wait(self)
	v := q.popLocked()
	q.tailSem.Post()
	return v
}

// ReceiveTimeout is Receive bounded by timeoutTicks ticks; timedOut is true
// if no element arrived in time, in which case the zero value of T is
// returned.
func (q *Queue[T]) ReceiveTimeout(self *kernel.Thread, timeoutTicks int64) (v T, timedOut bool) {
	if q.headSem.WaitTimeout(self, timeoutTicks) {
		var zero T
		return zero, true
	}
	v = q.popLocked()
	q.tailSem.Post()
	return v, false
}

// TryReceive dequeues an element without blocking. ok is false if the queue
// was empty. ISR-safe.
func (q *Queue[T]) TryReceive() (v T, ok bool) {
	if !q.headSem.TryWait() {
		var zero T
		return zero, false
	}
	v = q.popLocked()
	q.tailSem.Post()
	return v, true
}

func (q *Queue[T]) pushLocked(v T) {
	q.k.Lock()
	q.buf[q.tail] = v
	q.tail = (q.tail + 1) % len(q.buf)
	q.k.Unlock()
}

func (q *Queue[T]) popLocked() T {
	q.k.Lock()
	v := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.k.Unlock()
	return v
}

func (q *Queue[T]) raiseBound() {
	if q.bound != nil {
		q.bound.Raise(gsync.ChannelBit(q.channel))
	}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int { return len(q.buf) - q.tailSem.Value() }

// Cap returns the queue's fixed capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }
