package retrocell

// collectGarbage implements spec §4.6: called at the start of every
// write. While the garbage queue has more than one entry and the
// front node's refcount is zero, pop it and push its storage onto the
// pool. The strict "len > 1" check is essential: the node currently
// designated by previous is always the tail, so retaining at least
// one entry guarantees previous is never dangling even if nobody is
// reading it right now.
func (w *Writer[T]) collectGarbage() {
	for len(w.garbage) > 1 && w.garbage[0].count.count() == 0 {
		n := w.garbage[0]
		w.garbage = w.garbage[1:]
		w.pushPool(n)
	}
	if w.core.metrics != nil {
		w.core.metrics.garbageDepth.Set(float64(len(w.garbage)))
	}
}

func (w *Writer[T]) pushPool(n *node[T]) {
	if len(w.pool) >= w.opts.poolCap {
		return // let it be GC'd by Go's collector instead of hoarding.
	}
	w.pool = append(w.pool, n)
}

// obtainNode pops a drained node from the free-list and overwrites
// its storage with v, or allocates a fresh node if the pool is empty
// (spec §4.5 step 2).
func (w *Writer[T]) obtainNode(v T) *node[T] {
	if len(w.pool) > 0 {
		n := w.pool[len(w.pool)-1]
		w.pool = w.pool[:len(w.pool)-1]
		n.count.reset()
		n.data = v
		if w.core.metrics != nil {
			w.core.metrics.poolHits.Inc()
		}
		return n
	}
	if w.core.metrics != nil {
		w.core.metrics.poolMisses.Inc()
	}
	return newNode(v)
}

// Stats is a point-in-time snapshot of the writer's internal queues,
// for callers who want visibility without pulling in the optional
// Prometheus collector (WithMetrics).
type Stats struct {
	GarbageDepth int
	PoolDepth    int
}

// Stats returns a snapshot of the writer's garbage-queue and
// free-list depths.
func (w *Writer[T]) Stats() Stats {
	return Stats{GarbageDepth: len(w.garbage), PoolDepth: len(w.pool)}
}
