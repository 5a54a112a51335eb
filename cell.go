package retrocell

import (
	"unsafe"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const lockBit uintptr = 1

// cellCore is the concurrency hub shared by a Writer and every clone
// of its Reader: the tagged current word (node pointer | lock bit),
// the previous pointer, and the Notifier readers and the writer both
// touch. Garbage and pool are writer-private and live on Writer, not
// here, since only the writer ever mutates them (spec §3,
// "Ownership").
//
// current and previous are go.uber.org/atomic wrappers rather than
// bare words: unlike refCount and notifier, nothing ever futex-waits
// on them directly (readers only spin/yield while validating), so
// there's no need for raw pointer access and the typed wrapper buys
// us compile-time protection against an accidental non-atomic touch,
// the same protection grafana-tempo's internal concurrency code
// leans on go.uber.org/atomic for pack-wide.
type cellCore[T any] struct {
	current   atomic.Uintptr
	previous  atomic.Uintptr
	notify    notifier
	metrics   *cellMetrics
	log       *zap.SugaredLogger
	spinLimit int
}

func packCurrent[T any](n *node[T], locked bool) uintptr {
	w := uintptr(unsafe.Pointer(n))
	if locked {
		w |= lockBit
	}
	return w
}

func unpackNode[T any](w uintptr) *node[T] {
	return (*node[T])(unsafe.Pointer(w &^ lockBit))
}

func isLocked(w uintptr) bool {
	return w&lockBit != 0
}

func (c *cellCore[T]) loadCurrent() uintptr {
	return c.current.Load()
}

func (c *cellCore[T]) loadPrevious() *node[T] {
	w := c.previous.Load()
	if w == 0 {
		return nil
	}
	return unpackNode[T](w)
}

// releaseInPlace clears the lock bit set at lockedAt and wakes any
// readers parked on the notifier, in that order (spec §4.4's ordering
// requirement: the release-store publishing the mutation must
// happen-after every write through the guard, which Go's own
// sequential happens-before within one goroutine already guarantees
// since Close is always called after Get/Set/Mutate).
func (c *cellCore[T]) releaseInPlace(lockedAt uintptr) {
	c.current.Store(lockedAt &^ lockBit)
	c.notify.advanceAndWake()
}
