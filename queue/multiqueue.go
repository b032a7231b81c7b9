package queue

import (
	"github.com/mneedes/gomos/kernel"
	gsync "github.com/mneedes/gomos/sync"
)

// WaitAny blocks self until at least one of the signal channels bound to
// sig via Queue.BindSignal has data, returning the lowest-numbered ready
// channel (channel 0 is highest priority, spec.md §4.P). Any other bits
// observed set are re-raised on sig so a second WaitAny call doesn't lose
// them. ok is false if timeoutTicks elapsed first (no bound if negative).
func WaitAny(self *kernel.Thread, sig *gsync.Signal, timeoutTicks int64) (channel int, ok bool) {
	mask, timedOut := sig.WaitTimeout(self, timeoutTicks)
	if timedOut || mask == 0 {
		return -1, false
	}
	ch := gsync.NextChannel(mask)
	if remaining := gsync.ClearChannel(mask, ch); remaining != 0 {
		sig.Raise(remaining)
	}
	return ch, true
}
