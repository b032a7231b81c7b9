package kernel

// Run starts the scheduler (spec.md §6 "kernel entry point") and blocks
// until Shutdown is called. Spawn and Start every application thread
// before calling Run; threads launched afterward join the run queue
// normally and are picked up on their priority's next turn. Run itself
// never runs on a Thread's baton — it only dispatches the first one and
// then waits, since after that the running threads pass the CPU among
// themselves via reschedule.
func (k *Kernel) Run() {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return
	}
	k.started = true
	k.mu.Unlock()

	k.reschedule(nil)
	<-k.stopCh
}

// Shutdown ends Run. It does not stop any thread; it only releases the
// goroutine blocked in Run. Safe to call more than once or concurrently.
func (k *Kernel) Shutdown() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}
