package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects process-wide counters for the request path and the daemon.
type Metrics struct {
	mu sync.Mutex

	// Request path
	requestTotal       atomic.Int64
	parseFailures      atomic.Int64
	resolutionFailures atomic.Int64
	requestNanos       atomic.Int64

	// Daemon
	cycles           atomic.Int64
	fired            atomic.Int64
	skipped          atomic.Int64
	publishFailures  atomic.Int64
	storeErrors      atomic.Int64
	degradedEpisodes atomic.Int64
	purged           atomic.Int64

	firedByKind map[string]*atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{firedByKind: make(map[string]*atomic.Int64)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records one handled utterance and its latency.
func (m *Metrics) RecordRequest(duration time.Duration) {
	m.requestTotal.Add(1)
	m.requestNanos.Add(int64(duration))
}

func (m *Metrics) RecordParseFailure() {
	m.parseFailures.Add(1)
}

func (m *Metrics) RecordResolutionFailure() {
	m.resolutionFailures.Add(1)
}

func (m *Metrics) RecordCycle() {
	m.cycles.Add(1)
}

// RecordFired records a commitment that transitioned to fired.
func (m *Metrics) RecordFired(kind string) {
	m.fired.Add(1)
	m.kindCounter(kind).Add(1)
}

// RecordSkipped records a due row that changed before it could fire.
func (m *Metrics) RecordSkipped() {
	m.skipped.Add(1)
}

func (m *Metrics) RecordPublishFailure() {
	m.publishFailures.Add(1)
}

func (m *Metrics) RecordStoreError() {
	m.storeErrors.Add(1)
}

func (m *Metrics) RecordDegraded() {
	m.degradedEpisodes.Add(1)
}

func (m *Metrics) RecordPurged(n int64) {
	m.purged.Add(n)
}

func (m *Metrics) kindCounter(kind string) *atomic.Int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.firedByKind[kind]
	if !ok {
		c = &atomic.Int64{}
		m.firedByKind[kind] = c
	}
	return c
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.requestTotal, &m.parseFailures, &m.resolutionFailures, &m.requestNanos,
		&m.cycles, &m.fired, &m.skipped, &m.publishFailures, &m.storeErrors,
		&m.degradedEpisodes, &m.purged,
	} {
		c.Store(0)
	}
	m.mu.Lock()
	m.firedByKind = make(map[string]*atomic.Int64)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	s := &MetricsSnapshot{
		RequestTotal:       m.requestTotal.Load(),
		ParseFailures:      m.parseFailures.Load(),
		ResolutionFailures: m.resolutionFailures.Load(),
		DaemonCycles:       m.cycles.Load(),
		Fired:              m.fired.Load(),
		Skipped:            m.skipped.Load(),
		PublishFailures:    m.publishFailures.Load(),
		StoreErrors:        m.storeErrors.Load(),
		DegradedEpisodes:   m.degradedEpisodes.Load(),
		Purged:             m.purged.Load(),
		FiredByKind:        map[string]int64{},
	}
	if s.RequestTotal > 0 {
		s.AverageRequestMs = time.Duration(m.requestNanos.Load() / s.RequestTotal).Milliseconds()
	}

	m.mu.Lock()
	for kind, c := range m.firedByKind {
		s.FiredByKind[kind] = c.Load()
	}
	m.mu.Unlock()
	return s
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal       int64            `json:"request_total" yaml:"request_total"`
	ParseFailures      int64            `json:"parse_failures" yaml:"parse_failures"`
	ResolutionFailures int64            `json:"resolution_failures" yaml:"resolution_failures"`
	AverageRequestMs   int64            `json:"average_request_ms" yaml:"average_request_ms"`
	DaemonCycles       int64            `json:"daemon_cycles" yaml:"daemon_cycles"`
	Fired              int64            `json:"fired" yaml:"fired"`
	Skipped            int64            `json:"skipped" yaml:"skipped"`
	PublishFailures    int64            `json:"publish_failures" yaml:"publish_failures"`
	StoreErrors        int64            `json:"store_errors" yaml:"store_errors"`
	DegradedEpisodes   int64            `json:"degraded_episodes" yaml:"degraded_episodes"`
	Purged             int64            `json:"purged" yaml:"purged"`
	FiredByKind        map[string]int64 `json:"fired_by_kind" yaml:"fired_by_kind"`
}

// UnderstoodRate returns the share of requests that parsed and resolved, 0-100.
func (s *MetricsSnapshot) UnderstoodRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	failed := s.ParseFailures + s.ResolutionFailures
	return float64(s.RequestTotal-failed) / float64(s.RequestTotal) * 100.0
}

// Kinds returns the fired kinds in stable order.
func (s *MetricsSnapshot) Kinds() []string {
	kinds := make([]string, 0, len(s.FiredByKind))
	for k := range s.FiredByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
