package retrocell

import (
	"context"
	"time"
)

// Reader is a freely cloneable handle for reading a cell's current
// (or, while blocked, previous) value. Reader itself carries no
// mutable state beyond the shared core pointer, so cloning is just a
// struct copy — unlike Writer, many Readers may run concurrently from
// any goroutine.
type Reader[T any] struct {
	core *cellCore[T]
}

// Clone returns an independent Reader bound to the same cell.
func (r *Reader[T]) Clone() *Reader[T] {
	return &Reader[T]{core: r.core}
}

// TryRead implements spec §4.2's try_read: it never blocks. If it
// observes the lock bit set, it returns a BlockedReader instead of a
// Ref so the caller can decide how to proceed (Wait, or ReadRetro).
func (r *Reader[T]) TryRead() (*Ref[T], *BlockedReader[T]) {
	ref := r.tryRetain()
	if ref != nil {
		return ref, nil
	}
	return nil, &BlockedReader[T]{core: r.core}
}

// tryRetain is the retain-then-validate loop shared by TryRead and
// BlockedReader.Wait's unlocked branch: load current, retain the
// referenced node, reload current, and only trust the retain if
// current hasn't moved in the meantime. A concurrent writer can only
// ever replace current with a *newer* publication, never dangle the
// one we just retained, so a successful validate means our Ref is
// good for as long as we hold it (spec §4.2 "Guarantee").
//
// Returns nil (without having retained anything live) if current is
// observed locked at the first load of any attempt, including an
// attempt that follows a failed validation.
func (r *Reader[T]) tryRetain() *Ref[T] {
	spins := 0
	for {
		v := r.core.loadCurrent()
		if isLocked(v) {
			return nil
		}

		n := unpackNode[T](v)
		n.count.retain()

		v2 := r.core.loadCurrent()
		if v2 == v {
			return newRefWithMetrics(n, r.core.metrics)
		}

		n.count.release()
		backoff(&spins, r.core.spinLimit)
	}
}

// backoff implements the spin-then-yield schedule spec §4.2 step 5
// describes: CPU pause for roughly the first half of limit iterations,
// then yield. limit is WithSpinLimit's configured value (package
// default spinLimit when unset).
func backoff(spins *int, limit int) {
	switch {
	case *spins < limit/2:
		pauseCPU()
	default:
		yieldBackoff()
	}
	if *spins < 1<<20 {
		*spins++
	}
}

// Read blocks until a Ref is available, equivalent to TryRead
// followed, on Blocked, by BlockedReader.Wait. ctx governs how long
// the caller is willing to wait; retrocell's own drain/publish
// protocol is otherwise unbounded (spec §5), so a context.Background()
// blocks exactly as the spec's bare read() would.
func (r *Reader[T]) Read(ctx context.Context) (*Ref[T], error) {
	if ctx == nil {
		panic(errNilContext)
	}
	ref, blocked := r.TryRead()
	if blocked == nil {
		return ref, nil
	}
	return blocked.Wait(ctx)
}

// ReadRetro returns the immediately preceding value, if one still
// exists (spec §4.2's read_retro). It never blocks and is safe to
// call regardless of whether the writer currently holds the lock.
func (r *Reader[T]) ReadRetro() (*Ref[T], bool) {
	n := r.core.loadPrevious()
	if n == nil {
		return nil, false
	}
	n.count.retain()
	return newRefWithMetrics(n, r.core.metrics), true
}

// BlockedReader is returned by TryRead (and, internally, by Read)
// when the lock bit was observed set. It offers the two operations
// spec §4.3 describes: Wait for the writer to release, or ReadRetro
// for a non-blocking look at the previous value while still blocked.
type BlockedReader[T any] struct {
	core *cellCore[T]
}

// ReadRetro is identical to Reader.ReadRetro: safe to call while the
// writer holds the lock, since previous (if non-nil) designates a
// node still held live by the writer's garbage queue.
func (b *BlockedReader[T]) ReadRetro() (*Ref[T], bool) {
	n := b.core.loadPrevious()
	if n == nil {
		return nil, false
	}
	n.count.retain()
	return newRefWithMetrics(n, b.core.metrics), true
}

// Wait blocks until a Ref becomes available (spec §4.3's wait()). It
// reads the notifier's ticket before re-checking current so that a
// writer which released and woke waiters between our re-check and
// the park call doesn't cause a lost wakeup: the ticket will already
// have advanced, and waitTicket returns immediately in that case.
//
// ctx is checked between iterations, not inside the futex syscall
// itself — the underlying wait/wake primitive spec §5 calls for has
// no timeout, so a cancellation that arrives while genuinely parked
// is only observed once some other event wakes this goroutine (a
// subsequent write, most commonly). Callers needing a hard deadline
// independent of writer activity should drive TryRead in a loop
// externally instead, exactly as spec §5 prescribes.
func (b *BlockedReader[T]) Wait(ctx context.Context) (*Ref[T], error) {
	if ctx == nil {
		panic(errNilContext)
	}
	start := time.Now()
	spins := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, wrapf(err, "retrocell: BlockedReader.Wait")
		}

		v := b.core.loadCurrent()
		if !isLocked(v) {
			n := unpackNode[T](v)
			n.count.retain()

			v2 := b.core.loadCurrent()
			if v2 == v {
				if b.core.metrics != nil {
					b.core.metrics.blockedReadWait.Observe(time.Since(start).Seconds())
				}
				return newRefWithMetrics(n, b.core.metrics), nil
			}
			n.count.release()
			backoff(&spins, b.core.spinLimit)
			continue
		}

		ticket := b.core.notify.currentTicket()
		if v2 := b.core.loadCurrent(); isLocked(v2) {
			b.core.notify.waitTicket(ticket)
		}
	}
}
