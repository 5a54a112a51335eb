package retrocell

import "unsafe"

// cacheLinePad sizes the trailing padding on refCount and notifier so
// each sits alone on its own cache line: refCount is written by every
// reader on retain/release, current is written only by the writer,
// and letting them share a line would make every reader retain bounce
// the writer's line for no reason (spec §5, "False-sharing").
// 64 bytes is the common cache line size minus the word's own 4 bytes,
// rounded to a whole line; it's deliberately generous rather than
// tuned per architecture, matching the manual-padding style the
// example pack's cache implementations use for the same reason.
const cacheLinePad = 60

// Cloner is implemented by value types that know how to duplicate
// themselves cheaply for the copy-on-write path (WriteCOW). Types
// that don't implement it can still use TryWrite/WriteInPlace; only
// WriteCOW requires either Cloner or a CloneFunc option at
// construction.
type Cloner[T any] interface {
	Clone() T
}

// node owns exactly one instance of T plus the refCount tracking how
// many live Refs point at it. Nodes are always heap-allocated via new
// or pool reuse so their address stays stable for the node's entire
// lifetime; see cellCore.current for why that address's low bit
// must be unused.
type node[T any] struct {
	data  T
	count refCount
}

func newNode[T any](v T) *node[T] {
	n := &node[T]{data: v}
	assertTagBitFree(n)
	return n
}

// assertTagBitFree panics if n's address has its low bit set, which
// would collide with cellCore.current's lock-bit tag. The Go
// allocator never returns such an address for any struct containing
// a pointer-or-wider field (node always does, via refCount's uint32
// plus padding rounding its size up), so this can never actually
// fire; it's the "alignment assertion at cell creation" spec §7 calls
// for, kept as insurance rather than a load-bearing check.
func assertTagBitFree[T any](n *node[T]) {
	if uintptr(unsafe.Pointer(n))&1 != 0 {
		panic(wrapf(errMisaligned, "node %p", n))
	}
}
