package kernel

// Lock and Unlock expose the kernel's single critical section to sync,
// queue, and clientctx, which keep a primitive's own state (a mutex's
// owner/depth, a semaphore's count, a signal's mask) consistent with
// run-queue and pend-queue mutation under the very same lock, rather than
// layering a second lock that would need its own ordering discipline on
// top of k.mu (see the single-mutex note in kernel.go).
func (k *Kernel) Lock()   { k.mu.Lock() }
func (k *Kernel) Unlock() { k.mu.Unlock() }
