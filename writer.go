package retrocell

import "context"

// Writer is the single mutator handle for a cell. It is move-only by
// convention (spec: "not duplicable / shareable by simple sharing");
// Go cannot enforce move-only types, so Writer simply has no Clone
// method and its doc comment says so loudly. The teacher's own
// Writer[T] enforced its single-writer invariant at runtime with a
// sync.Mutex.TryLock guard (unsyncWriterCheck); this redesign instead
// gives the writer real private state (garbage, pool) that only makes
// sense under single ownership, so the type itself carries the
// contract rather than a runtime check.
type Writer[T any] struct {
	core    *cellCore[T]
	opts    options
	cloneFn func(T) T

	garbage []*node[T]
	pool    []*node[T]

	closed bool
}

// CongestedWriter is returned by TryWrite when the writer observed
// live readers and declined to take the in-place path. The caller
// chooses what to do next: fall back to WriteCOW, or Retry.
type CongestedWriter[T any] struct {
	w *Writer[T]
}

// Retry re-attempts TryWrite with the same pause/yield backoff
// schedule the reader fast path uses (spec §4.2 step 5), for callers
// that want an "eventually consistent, never block the caller
// forever" producer. It returns once TryWrite produces an
// InPlaceGuard, or ctx is done.
func (c *CongestedWriter[T]) Retry(ctx context.Context) (*InPlaceGuard[T], error) {
	if ctx == nil {
		panic(errNilContext)
	}
	spins := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, wrapf(err, "retrocell: CongestedWriter.Retry")
		}
		guard, congested := c.w.TryWrite()
		if congested == nil {
			return guard, nil
		}
		c = congested
		backoff(&spins, c.w.opts.spinLimit)
	}
}

// New constructs a cell holding initial, returning a Writer and a
// Reader bound to it. The Reader is cloneable; the Writer is not.
func New[T any](initial T, opts ...Option) (*Writer[T], *Reader[T]) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	core := &cellCore[T]{log: namedLogger(o.logger), spinLimit: o.spinLimit}
	if o.registry != nil {
		core.metrics = newCellMetrics(o.registry, "retrocell", "cell")
	}

	n := newNode(initial)
	core.current.Store(packCurrent(n, false))

	w := &Writer[T]{core: core, opts: o}
	if fn, ok := o.cloneFunc.(func(T) T); ok {
		w.cloneFn = fn
	} else if _, ok := any(initial).(Cloner[T]); ok {
		w.cloneFn = func(v T) T { return any(v).(Cloner[T]).Clone() }
	}

	r := &Reader[T]{core: core}
	return w, r
}

// Close tears the cell down: the writer drops its references to
// garbage and pool so nothing outlives a genuinely dead cell by
// accident (Go's GC reclaims the node storage once nothing points at
// it any more), and makes a double-Close or use-after-Close a loud
// programmer error instead of silent corruption.
func (w *Writer[T]) Close() {
	w.assertOpen()
	w.closed = true
	w.garbage = nil
	w.pool = nil
}

func (w *Writer[T]) assertOpen() {
	if w.closed {
		panic(errClosedWriter)
	}
}

// TryWrite implements spec §4.4's decision procedure: it never blocks
// the caller. If no readers are active on the current node it takes
// the in-place path and returns a guard; otherwise it reports
// congestion and the caller decides what to do next.
func (w *Writer[T]) TryWrite() (*InPlaceGuard[T], *CongestedWriter[T]) {
	w.assertOpen()
	w.collectGarbage()

	for {
		v := w.core.loadCurrent()
		n := unpackNode[T](v)

		if n.count.count() != 0 {
			return nil, &CongestedWriter[T]{w: w}
		}

		locked := packCurrent(n, true)
		if !w.core.current.CompareAndSwap(v, locked) {
			// current changed between our load and here. Readers
			// never write current and this is the cell's only
			// writer, so this branch does not fire in practice; it
			// reloads and re-decides defensively.
			continue
		}

		if n.count.count() == 0 {
			return &InPlaceGuard[T]{core: w.core, node: n, lockedAt: locked}, nil
		}

		// Roll back: a reader retained between our zero-check and
		// the lock swap. Release the lock and wake anyone who
		// observed it set.
		w.core.current.Store(v)
		w.core.notify.advanceAndWake()
		return nil, &CongestedWriter[T]{w: w}
	}
}

// WriteInPlace always produces an InPlaceGuard. If readers are
// currently active it unconditionally sets the lock bit and drains
// them via refCount.waitUntilZero before handing the guard back.
// Readers that arrive during the drain observe the lock bit on their
// validating load and are routed onto the BlockedReader path, whose
// retain/validate will re-sync once the guard closes.
func (w *Writer[T]) WriteInPlace() *InPlaceGuard[T] {
	w.assertOpen()
	w.collectGarbage()

	v := w.core.loadCurrent()
	n := unpackNode[T](v)
	locked := packCurrent(n, true)
	for !w.core.current.CompareAndSwap(v, locked) {
		v = w.core.loadCurrent()
		n = unpackNode[T](v)
		locked = packCurrent(n, true)
	}

	if n.count.count() != 0 {
		n.count.waitUntilZero(w.opts.spinLimit)
	}

	return &InPlaceGuard[T]{core: w.core, node: n, lockedAt: locked}
}

// WriteCOW unconditionally copies: it clones the current value into a
// freshly obtained node (reusing pool storage when available), hands
// mutate a pointer directly into that node's own storage, and
// publishes the node as the new current without ever waiting on a
// reader. The superseded node is enrolled in the garbage queue before
// it's published into previous, so no concurrent reader can ever
// observe a previous pointer the GC has no record of.
//
// Go forbids a method from carrying its own type parameter, so this
// is a package-level function with two type parameters (T for the
// cell, R for mutate's result) rather than a method on Writer[T] — the
// same shape the standard library's own generic helpers (e.g. the
// slices/maps packages) use when a second, call-site-only type
// parameter is needed. mutate receives *T pointing directly at the
// node obtained for this write, so a pool-recycled node's backing
// storage is genuinely reused for the mutation itself, not only for
// holding a value that was already fully computed beforehand.
func WriteCOW[T any, R any](w *Writer[T], mutate func(*T) R) R {
	w.assertOpen()
	w.collectGarbage()

	if w.cloneFn == nil {
		panic(wrapf(errNotCloneable, "WriteCOW"))
	}

	v := w.core.loadCurrent()
	old := unpackNode[T](v)
	cloned := w.cloneFn(old.data)

	nn := w.obtainNode(cloned)
	result := mutate(&nn.data)
	newWord := packCurrent(nn, false)

	w.core.current.Store(newWord)
	w.garbage = append(w.garbage, old)
	w.core.previous.Store(packCurrent(old, false))
	w.core.notify.advanceAndWake()

	if w.core.metrics != nil {
		w.core.metrics.garbageDepth.Set(float64(len(w.garbage)))
	}

	return result
}
