// Package atomicx collects the low-level CAS, counter, and lock primitives
// that every other runtime package builds on.
package atomicx

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a non-reentrant spinlock. Use for O(1) critical sections only
// (slot reservation, monitor version bumps); anything that can block belongs
// behind a sync.Mutex instead.
type Spinlock struct {
	held atomic.Bool
}

func (s *Spinlock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *Spinlock) Unlock() {
	s.held.Store(false)
}

// TryLock attempts to acquire the spinlock without spinning.
func (s *Spinlock) TryLock() bool {
	return s.held.CompareAndSwap(false, true)
}

// Counter32 is a wrapped uint32 CAS counter with wrap-to-floor semantics,
// used for session ids (wrap to 1, never 0).
type Counter32 struct {
	v atomic.Uint32
}

// NextWrapping atomically increments the counter, resetting to floor when
// the increment would exceed max (inclusive). Returns the new value.
func NextWrapping(c *Counter32, floor, max uint32) uint32 {
	for {
		cur := c.v.Load()
		next := cur + 1
		if cur == max || next < cur {
			next = floor
		}
		if c.v.CompareAndSwap(cur, next) {
			return next
		}
	}
}

func (c *Counter32) Load() uint32 { return c.v.Load() }
func (c *Counter32) Store(v uint32) { c.v.Store(v) }

// RefCount is a simple atomic reference counter used by service contexts
// and reserved addresses.
type RefCount struct {
	n atomic.Int32
}

func NewRefCount(initial int32) *RefCount {
	r := &RefCount{}
	r.n.Store(initial)
	return r
}

// Inc increments and returns the new value.
func (r *RefCount) Inc() int32 { return r.n.Add(1) }

// Dec decrements and returns the new value. Callers destroy the owner when
// this reaches zero.
func (r *RefCount) Dec() int32 { return r.n.Add(-1) }

func (r *RefCount) Load() int32 { return r.n.Load() }
