// Package retrocell implements a single-producer, multi-consumer
// concurrent cell holding one value of a caller-chosen type.
//
// Readers obtain a stable view of the value without ever blocking the
// writer in the common case. The writer mutates the value in place
// when no reader is active, or falls back to copy-on-write when
// readers are present, avoiding an unconditional copy of a
// potentially large value on every write. A reader that would
// otherwise have to block because the writer holds exclusive access
// may instead observe the immediately preceding value (a "retro
// read") and carry on without waiting.
//
// There is exactly one writer handle per cell; if multiple goroutines
// want to write, they must serialize themselves externally (see
// Writer). Any number of reader handles may be cloned freely and used
// concurrently from any goroutine.
//
// The write path is chosen per call: TryWrite never blocks the caller
// and reports congestion instead, WriteInPlace always mutates storage
// in place after draining outstanding readers, and WriteCOW always
// publishes a fresh copy and never waits on readers at all.
package retrocell
