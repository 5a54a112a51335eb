//go:build linux

package retrocell

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexWait parks the calling goroutine in the kernel via FUTEX_WAIT
// until addr's value no longer equals expected, or until a matching
// FUTEX_WAKE arrives. FUTEX_WAIT itself already performs this
// compare-and-sleep atomically, so no lock is needed between our last
// load of addr and entering the syscall.
func futexWait(addr *uint32, expected uint32) {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT|unix.FUTEX_PRIVATE_FLAG),
		uintptr(expected),
		0, 0, 0,
	)
	// EAGAIN (value already changed) and EINTR (spurious signal) are
	// both legal spurious-wake reasons; callers always re-validate
	// their own condition in a loop, so we don't distinguish errno
	// here.
	_ = errno
}

// futexWake wakes up to n goroutines parked via futexWait on addr.
func futexWake(addr *uint32, n int) {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE|unix.FUTEX_PRIVATE_FLAG),
		uintptr(n),
		0, 0, 0,
	)
}
