package retrocell

import (
	"runtime"
	"sync/atomic"
)

// Ref is an RAII-style handle to a retained node. While a Ref is
// alive, the node it points at cannot be recycled: its refCount
// includes this reference. Callers must call Close exactly once when
// done; Go has no destructors, so a forgotten Close pins the node
// until the finalizer below runs. The finalizer hands a warning to the
// package default logger and releases the reference; finalizer timing
// is unspecified and usually much later than a real Close would be.
type Ref[T any] struct {
	node    *node[T]
	metrics *cellMetrics
	closed  uint32
}

func newRefWithMetrics[T any](n *node[T], m *cellMetrics) *Ref[T] {
	r := &Ref[T]{node: n, metrics: m}
	if m != nil {
		m.retainedNodes.Inc()
	}
	runtime.SetFinalizer(r, func(leaked *Ref[T]) {
		if atomic.LoadUint32(&leaked.closed) == 0 {
			defaultLogger.Warnw("retrocell: Ref finalized without Close, node leaked until now", "node", leaked.node)
			leaked.node.count.release()
			if leaked.metrics != nil {
				leaked.metrics.retainedNodes.Dec()
			}
		}
	})
	return r
}

// Get returns the referenced value. It is a programmer error to call
// Get after Close; doing so panics.
func (r *Ref[T]) Get() T {
	if atomic.LoadUint32(&r.closed) != 0 {
		panic(wrapf(errDoubleClose, "Ref.Get after Close"))
	}
	return r.node.data
}

// Close releases the reference. It is a programmer error to call
// Close twice.
func (r *Ref[T]) Close() {
	if !atomic.CompareAndSwapUint32(&r.closed, 0, 1) {
		panic(errDoubleClose)
	}
	runtime.SetFinalizer(r, nil)
	r.node.count.release()
	if r.metrics != nil {
		r.metrics.retainedNodes.Dec()
	}
}

// InPlaceGuard is the RAII handle returned by a successful in-place
// write. While held, the caller has exclusive mutable access to the
// node's storage; on Close the lock bit is cleared and any blocked
// readers are woken, in that order, so DerefMut-then-Drop ordering
// (spec §4.4) is satisfied by Go's own happens-before rule for a
// single goroutine's sequential statements.
type InPlaceGuard[T any] struct {
	core     *cellCore[T]
	node     *node[T]
	lockedAt uintptr
	closed   bool
}

// Get returns the current value for read access while the guard is held.
func (g *InPlaceGuard[T]) Get() T {
	g.assertOpen()
	return g.node.data
}

// Set overwrites the value in place while the guard is held.
func (g *InPlaceGuard[T]) Set(v T) {
	g.assertOpen()
	g.node.data = v
}

// Mutate applies fn to the value in place while the guard is held.
func (g *InPlaceGuard[T]) Mutate(fn func(T) T) {
	g.assertOpen()
	g.node.data = fn(g.node.data)
}

// Close publishes the (possibly mutated) value and releases the lock
// bit, waking any readers that were forced onto the BlockedReader
// path while the guard was held.
func (g *InPlaceGuard[T]) Close() {
	g.assertOpen()
	g.closed = true
	g.core.releaseInPlace(g.lockedAt)
}

func (g *InPlaceGuard[T]) assertOpen() {
	if g.closed {
		panic(errDoubleClose)
	}
}
