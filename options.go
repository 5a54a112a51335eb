package retrocell

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a cell at construction time. There is no config
// file, environment variable, or CLI surface (spec §6); everything is
// a functional option on New, the same constructor-options idiom used
// pack-wide for programmatic-only configuration.
type Option func(*options)

type options struct {
	poolCap   int
	spinLimit int
	logger    *zap.Logger
	registry  prometheus.Registerer
	cloneFunc interface{} // func(T) T, type-erased until New has T
}

func defaultOptions() options {
	return options{
		poolCap:   16,
		spinLimit: spinLimit,
	}
}

// WithPoolCap bounds how many drained nodes the writer keeps on its
// free-list before letting the garbage collector free them instead of
// recycling them. A higher cap trades memory for fewer allocations
// under write-heavy workloads.
func WithPoolCap(n int) Option {
	return func(o *options) { o.poolCap = n }
}

// WithSpinLimit overrides the spin budget (spec §4.1 step 4, §4.2
// step 5). A draining writer performs n CPU-pause spins before
// parking; the reader validation retry and CongestedWriter.Retry
// pause for the first n/2 iterations and yield after that.
func WithSpinLimit(n int) Option {
	return func(o *options) { o.spinLimit = n }
}

// WithLogger attaches a named *zap.Logger to the cell (a no-op logger
// when omitted). The cell stores it but no code path writes pool,
// garbage-collection or drain diagnostics to it.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers a Prometheus collector exposing the number of
// live Refs, garbage-queue depth, pool hit/miss counters, and a
// blocked-reader futex-wait histogram. Optional; metrics are never
// touched on the hot path when this option is omitted.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithCloneFunc supplies an explicit clone function for WriteCOW when
// T does not implement Cloner[T]. If T implements Cloner[T] this
// overrides that method.
func WithCloneFunc[T any](fn func(T) T) Option {
	return func(o *options) { o.cloneFunc = fn }
}
