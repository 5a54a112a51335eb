package retrocell

import "sync/atomic"

// notifier is a single 32-bit futex word used purely as an
// "anything changed" ticket. Its numeric value is never interpreted
// except via equality against a previously read ticket: it only ever
// needs to monotonically change so a blocked reader parked on an old
// ticket is guaranteed to wake once the writer advances it.
//
// Like refCount, this is a bare uint32 (not go.uber.org/atomic.Uint32)
// because it must hand its address to the futex primitive.
type notifier struct {
	ticket uint32
	_      [cacheLinePad]byte
}

// currentTicket returns the notifier's current value.
func (n *notifier) currentTicket() uint32 {
	return atomic.LoadUint32(&n.ticket)
}

// waitTicket parks the calling goroutine until the ticket no longer
// equals expected. The read of expected must happen before the
// caller's final re-check of the condition it's waiting on, so that a
// writer which already advanced and woke between that re-check and
// this call doesn't cause a lost wakeup (spec §4.3's "ticket read
// before the re-check" rationale).
func (n *notifier) waitTicket(expected uint32) {
	waitFutex(&n.ticket, expected)
}

// advanceAndWake bumps the ticket and wakes every goroutine parked on
// it. Called whenever the writer releases the lock bit on current,
// whether via a rolled-back TryWrite, an InPlaceGuard's Close, or a
// completed perform_cow (WriteCOW).
func (n *notifier) advanceAndWake() {
	atomic.AddUint32(&n.ticket, 1)
	wakeFutexAll(&n.ticket)
}
