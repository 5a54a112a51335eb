package retrocell

import "github.com/prometheus/client_golang/prometheus"

// cellMetrics is the optional Prometheus instrumentation wired in via
// WithMetrics. It is never constructed (and so never touched) unless
// a caller opts in, keeping the hot path allocation- and
// syscall-free the way spec §1 requires of the common case.
//
// Grounded on grafana-tempo's go.mod dependency on
// github.com/prometheus/client_golang, which the pack's production
// repo uses to instrument essentially every internal concurrency
// primitive it ships the same way: a handful of counters/gauges/
// histograms registered once, updated from the hot path with direct
// method calls (no string formatting, no map lookups).
type cellMetrics struct {
	retainedNodes   prometheus.Gauge
	garbageDepth    prometheus.Gauge
	poolHits        prometheus.Counter
	poolMisses      prometheus.Counter
	blockedReadWait prometheus.Histogram
}

func newCellMetrics(reg prometheus.Registerer, namespace, subsystem string) *cellMetrics {
	m := &cellMetrics{
		retainedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "retained_nodes",
			Help: "Number of live Refs currently retaining a node.",
		}),
		garbageDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "garbage_depth",
			Help: "Current length of the writer's garbage queue.",
		}),
		poolHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "pool_hits_total",
			Help: "Writes that reused a node from the free-list instead of allocating.",
		}),
		poolMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "pool_misses_total",
			Help: "Writes that allocated a fresh node because the pool was empty.",
		}),
		blockedReadWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "blocked_read_wait_seconds",
			Help:    "Time a BlockedReader spent parked on the notifier before resolving.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.retainedNodes, m.garbageDepth, m.poolHits, m.poolMisses, m.blockedReadWait)
	}
	return m
}
