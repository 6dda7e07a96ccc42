package syncx

import "sync/atomic"

// Metrics holds in-process worker counters, consumed by the stats endpoint.
type Metrics struct {
	claimed   atomic.Int64
	completed atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the worker counters.
type MetricsSnapshot struct {
	Claimed   int64 `json:"claimed"`
	Completed int64 `json:"completed"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Claimed:   m.claimed.Load(),
		Completed: m.completed.Load(),
		Retried:   m.retried.Load(),
		Failed:    m.failed.Load(),
	}
}
