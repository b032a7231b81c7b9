// Package sync provides the kernel's blocking primitives: a recursive mutex
// with single-level priority inheritance, a counting semaphore, a 32-bit
// signal, and the software timer handle (spec.md §4.P). Unlike the standard
// library's sync package these are scheduler-aware: every slow path parks
// the calling Thread on the owning kernel.Kernel rather than spinning or
// trapping into the OS.
package sync

import (
	"github.com/mneedes/gomos/kernel"
	"github.com/mneedes/gomos/list"
)

// A Mutex is a recursive mutual-exclusion lock with priority inheritance.
// The zero value is not usable; construct one with NewMutex. A Mutex must
// not be copied after first use. Unlike sync.Sem/sync.Signal, a mutex parks
// waiters on a bare pend list rather than a kernel.WaitQueue: it is never
// released from an ISR, so it needs none of WaitQueue's onEvent bookkeeping
// for NotifyRelease.
type Mutex struct {
	k     *kernel.Kernel
	pend  *list.List
	owner *kernel.Thread
	depth int
}

// NewMutex returns an unlocked Mutex bound to k.
func NewMutex(k *kernel.Kernel) *Mutex {
	return &Mutex{k: k, pend: list.New()}
}

// Lock acquires m for self. If self already holds m, Lock increments the
// recursion depth and returns immediately (spec.md §4.P "recursive mutex").
// Otherwise, if m is held by a lower-priority thread, that thread's
// effective priority is raised to self's for as long as self waits
// (single-level priority inheritance: only the direct owner is raised, not
// the owner of any mutex that owner is itself waiting on).
func (m *Mutex) Lock(self *kernel.Thread) {
	if m.tryOwn(self) {
		return
	}
	for {
		m.k.Lock()
		owner := m.owner
		m.k.Unlock()
		m.k.RaiseEffective(owner, self.EffectivePriority())

		m.k.BlockOn(self, m.pend, kernel.StateWaitMutex, -1)

		// Unlock hands ownership (and depth == 1) directly to the thread
		// at the head of the pend queue, so a woken waiter is already the
		// owner; re-entering tryOwn here would double-count that depth.
		m.k.Lock()
		owned := m.owner == self
		m.k.Unlock()
		if owned {
			return
		}
		if m.tryOwn(self) {
			return
		}
	}
}

// tryOwn attempts the fast path: recursive re-entry, or an uncontended
// acquire.
func (m *Mutex) tryOwn(self *kernel.Thread) bool {
	m.k.Lock()
	defer m.k.Unlock()
	switch {
	case m.owner == self:
		m.depth++
		return true
	case m.owner == nil:
		m.owner = self
		m.depth = 1
		return true
	default:
		return false
	}
}

// TryLock attempts the fast path only, never blocking. It returns false if m
// is held by another thread.
func (m *Mutex) TryLock(self *kernel.Thread) bool {
	return m.tryOwn(self)
}

// Unlock releases one level of recursion. Once depth reaches zero, the
// mutex passes directly to the highest-priority waiter (if any), which is
// enqueued at the front of its run queue; the unlocking thread's inherited
// priority (if it had been raised) is restored to nominal, and it yields if
// the woken waiter outranks it. Unlocking a mutex the caller does not own
// is a category (i) programmer error (spec.md §7).
func (m *Mutex) Unlock(self *kernel.Thread) {
	m.k.Lock()
	isOwner := m.owner == self
	if isOwner {
		m.depth--
	}
	stillHeld := isOwner && m.depth > 0
	clearing := isOwner && !stillHeld
	if clearing {
		m.owner = nil
	}
	m.k.Unlock()

	m.k.Assert(self, isOwner, "sync: Unlock by non-owner")
	if !clearing {
		return
	}
	m.releaseAndWake(self)
}

// releaseAndWake hands m to the highest-priority waiter (if any), restores
// self's own priority, and yields if the newly woken owner outranks self.
// Shared by Unlock's final recursion level and Restore.
func (m *Mutex) releaseAndWake(self *kernel.Thread) {
	woke := m.k.WakeHead(m.pend)
	if woke != nil {
		m.k.Lock()
		m.owner = woke
		m.depth = 1
		m.k.Unlock()
	}
	m.k.RestoreEffective(self)
	if woke != nil && woke.EffectivePriority() < self.EffectivePriority() {
		m.k.Yield(self)
	}
}

// Restore releases m unconditionally if self owns it, ignoring recursion
// depth, and does nothing (no assert) if self does not own m (spec.md §6
// "restore (release if owned)"). Unlike Unlock, it is safe to call
// defensively from cleanup code that isn't sure whether it still holds m.
func (m *Mutex) Restore(self *kernel.Thread) {
	m.k.Lock()
	isOwner := m.owner == self
	if isOwner {
		m.owner = nil
		m.depth = 0
	}
	m.k.Unlock()
	if !isOwner {
		return
	}
	m.releaseAndWake(self)
}

// IsOwner reports whether self currently holds m (spec.md §6 "is-owner").
func (m *Mutex) IsOwner(self *kernel.Thread) bool {
	m.k.Lock()
	defer m.k.Unlock()
	return m.owner == self
}

// Owner returns the thread currently holding m, or nil if unlocked.
func (m *Mutex) Owner() *kernel.Thread {
	m.k.Lock()
	defer m.k.Unlock()
	return m.owner
}

// Depth returns m's current recursion depth (0 if unlocked).
func (m *Mutex) Depth() int {
	m.k.Lock()
	defer m.k.Unlock()
	return m.depth
}

// WaiterCount returns the number of threads currently parked on m.
func (m *Mutex) WaiterCount() int {
	m.k.Lock()
	defer m.k.Unlock()
	return m.pend.Len()
}
