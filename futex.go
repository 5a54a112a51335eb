package retrocell

// waitFutex blocks the calling goroutine until the word's value
// changes away from expected, or until another goroutine calls
// wakeFutexOne/wakeFutexAll on it. A spurious return is always legal:
// every caller re-checks its own condition in a loop after waitFutex
// returns (see refCount.waitUntilZero, BlockedReader.Wait).
//
// Both refCount.waitUntilZero (wake-one) and notifier (wake-all) are
// built on this primitive, but they always operate on distinct words:
// the writer never parks on the Notifier's ticket, and readers never
// park on a Node's refCount. Mixing the two channels caused lost
// wakeups and spurious syscalls in earlier designs of this kind of
// cell (spec §9, "Two waiter channels, not one"); keeping them
// physically separate words is what makes that safe.
//
// The Linux implementation (futex_linux.go) wraps the futex(2)
// syscall via golang.org/x/sys/unix, keyed on the word's address,
// exactly the contract the Go runtime's own lock_futex.go documents.
// The fallback implementation (futex_fallback.go) is selected by
// build tag on platforms x/sys/unix's Futex is unavailable on,
// mirroring the example pack's own platform split for low-level
// runtime primitives (goid_go124.go / goid_fallback.go).
func waitFutex(addr *uint32, expected uint32) {
	futexWait(addr, expected)
}

// wakeFutexOne wakes at most one goroutine parked in waitFutex on addr.
func wakeFutexOne(addr *uint32) {
	futexWake(addr, 1)
}

// wakeFutexAll wakes every goroutine parked in waitFutex on addr.
func wakeFutexAll(addr *uint32) {
	futexWake(addr, maxWaiters)
}

const maxWaiters = 1<<31 - 1
