package router

import (
	"sync/atomic"
	"time"
)

// Metrics counts router traffic. All methods are safe for concurrent use.
type Metrics struct {
	searches    atomic.Uint64
	searchNs    atomic.Int64
	searchMaxNs atomic.Int64
	placed      atomic.Uint64
	failed      atomic.Uint64
	exhausted   atomic.Uint64
	malformed   atomic.Uint64
	startTime   time.Time
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordSearch records one search and its latency.
func (m *Metrics) RecordSearch(d time.Duration) {
	ns := d.Nanoseconds()
	m.searches.Add(1)
	m.searchNs.Add(ns)
	for {
		old := m.searchMaxNs.Load()
		if ns <= old || m.searchMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordPlaced records a successful placement.
func (m *Metrics) RecordPlaced() {
	m.placed.Add(1)
}

// RecordFailed records a failed placement.
func (m *Metrics) RecordFailed(exhausted bool) {
	m.failed.Add(1)
	if exhausted {
		m.exhausted.Add(1)
	}
}

// RecordMalformed records a dropped message.
func (m *Metrics) RecordMalformed() {
	m.malformed.Add(1)
}

// Snapshot returns a point-in-time copy.
func (m *Metrics) Snapshot() MetricsSnapshot {
	n := m.searches.Load()
	var avg time.Duration
	if n > 0 {
		avg = time.Duration(m.searchNs.Load() / int64(n))
	}
	return MetricsSnapshot{
		Uptime:            time.Since(m.startTime),
		Searches:          n,
		AvgSearchLatency:  avg,
		MaxSearchLatency:  time.Duration(m.searchMaxNs.Load()),
		Placed:            m.placed.Load(),
		Failed:            m.failed.Load(),
		AttemptsExhausted: m.exhausted.Load(),
		Malformed:         m.malformed.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	Uptime            time.Duration
	Searches          uint64
	AvgSearchLatency  time.Duration
	MaxSearchLatency  time.Duration
	Placed            uint64
	Failed            uint64
	AttemptsExhausted uint64
	Malformed         uint64
}
