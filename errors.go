package retrocell

import "github.com/pkg/errors"

// Sentinel errors surfaced on programmer-error paths (spec: "contract
// violations... may abort the process"). Some call sites wrap them
// with github.com/pkg/errors to add call-site context; others panic
// with the bare sentinel. Either way errors.Cause/errors.Is recover
// the sentinel.
var (
	// errMisaligned is asserted each time a node is allocated. No
	// architecture Go currently targets can trip this, since the Go
	// allocator never returns an address with a set low bit for any
	// type containing a pointer or 8-byte field; the check exists as
	// insurance against a future allocator change, not a live branch.
	errMisaligned = errors.New("retrocell: node address is not tag-bit aligned")

	// errNotCloneable is panicked with (wrapped) when WriteCOW is called on
	// a cell whose T does not implement Cloner and no CloneFunc option
	// was supplied at construction.
	errNotCloneable = errors.New("retrocell: value type is not cloneable, copy-on-write is unavailable")

	// errClosedWriter guards use of a Writer after Close.
	errClosedWriter = errors.New("retrocell: writer is closed")

	// errDoubleClose guards double-release of a Ref or InPlaceGuard.
	errDoubleClose = errors.New("retrocell: guard already closed")

	// errNilContext guards Read/Wait called with a nil context.
	errNilContext = errors.New("retrocell: nil context")
)

func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
