// Package metrics provides Prometheus metrics for the metadata store
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the store's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CacheLookupsTotal *prometheus.CounterVec
	BatchRecordsTotal *prometheus.CounterVec
	EventVetoesTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metastore_operations_total",
				Help: "Total number of metadata store operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metastore_operation_duration_seconds",
				Help:    "Duration of metadata store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metastore_cache_lookups_total",
				Help: "Metadata cache lookups by result",
			},
			[]string{"result"},
		),
		BatchRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metastore_batch_records_total",
				Help: "Records touched by batch operations",
			},
			[]string{"operation"},
		),
		EventVetoesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metastore_event_vetoes_total",
				Help: "Lifecycle events rejected by a subscriber",
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.CacheLookupsTotal,
		m.BatchRecordsTotal,
		m.EventVetoesTotal,
	)
	return m
}

// ObserveOperation records the outcome and latency of one store call
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CacheHit records a metadata cache hit
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss records a metadata cache miss
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// BatchRecords adds n to the records touched by a batch operation
func (m *Metrics) BatchRecords(operation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BatchRecordsTotal.WithLabelValues(operation).Add(float64(n))
}

// EventVetoed records a vetoed lifecycle event
func (m *Metrics) EventVetoed(event string) {
	if m == nil {
		return
	}
	m.EventVetoesTotal.WithLabelValues(event).Inc()
}
