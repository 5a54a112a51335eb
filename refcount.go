package retrocell

import (
	"runtime"
	"sync/atomic"
)

// refCount packs a 31-bit live-reference count and a single waiter
// bit into one 32-bit word: bits [0:31) are the count, bit 31 is
// "a writer is parked in waitUntilZero on this word".
//
// Only one writer can ever be parked on a given node's refCount at a
// time (the drain protocol admits exactly one waiter: the cell's sole
// writer), which is what makes release's conditional wake-one safe
// without a wake-all broadcast.
//
// The word is a bare uint32 rather than a go.uber.org/atomic.Uint32
// deliberately: it must expose its address to the futex primitive
// (futex(2) keys on the word's memory address), and go.uber.org/atomic's
// wrapper types do not expose a raw pointer to their backing word by
// design. current and previous on cellCore have no such
// constraint, so they do use go.uber.org/atomic (see cell.go).
type refCount struct {
	word uint32
	_    [cacheLinePad]byte
}

const (
	waitingBit uint32 = 1 << 31
	countMask  uint32 = waitingBit - 1
	spinLimit         = 20
)

// retain adds one live reference with acquire ordering: the caller
// must not observe the node's contents as stable until after this
// returns.
func (r *refCount) retain() {
	atomic.AddUint32(&r.word, 1)
}

// release drops one live reference and wakes a parked writer if this
// was the last outstanding reference while a writer was waiting.
func (r *refCount) release() {
	prev := atomic.AddUint32(&r.word, ^uint32(0)) + 1
	if prev == (1 | waitingBit) {
		wakeFutexOne(&r.word)
	}
}

// count returns the live reference count, ignoring the waiter bit.
func (r *refCount) count() uint32 {
	return atomic.LoadUint32(&r.word) & countMask
}

// reset zeroes the word. Only valid when the writer alone owns this
// node (freshly allocated, or popped from the pool with a known-zero
// count and no waiter), per spec §4.1.
func (r *refCount) reset() {
	atomic.StoreUint32(&r.word, 0)
}

// waitUntilZero is the writer-only cold path: it parks the calling
// goroutine until count() reads zero. It is never called from a
// reader. spins bounds the CPU-pause phase before parking on the
// futex (WithSpinLimit); callers that don't care about tuning it pass
// the package default spinLimit.
func (r *refCount) waitUntilZero(spins int) {
	for {
		state := atomic.LoadUint32(&r.word)
		if state&countMask == 0 {
			return
		}

		if state&waitingBit == 0 {
			if !atomic.CompareAndSwapUint32(&r.word, state, state|waitingBit) {
				continue
			}
			state |= waitingBit
		}

		state = atomic.LoadUint32(&r.word)
		if state&countMask == 0 {
			return
		}

		zeroed := false
		for i := 0; i < spins; i++ {
			pauseCPU()
			state = atomic.LoadUint32(&r.word)
			if state&countMask == 0 {
				zeroed = true
				break
			}
		}
		if zeroed {
			return
		}

		waitFutex(&r.word, state)
	}
}

func pauseCPU() {
	// Go exposes no portable CPU-pause intrinsic to user code;
	// runtime.Gosched is the idiomatic stand-in used throughout the
	// example pack's spin/backoff loops (the teacher's own
	// retain-then-validate retry yields to the scheduler on retry).
	runtime.Gosched()
}

// yieldBackoff is the "saturate at yield" half of the spin-then-yield
// backoff schedule spec §4.2 step 5 describes (CPU pause for the
// first ~10 iterations, yield thereafter). Once spinning is exhausted
// it's the same runtime.Gosched-based yield as pauseCPU — the
// distinction in the spec is about call-site intent (give up the
// core vs. just hint the scheduler), not a different primitive.
func yieldBackoff() {
	runtime.Gosched()
}
