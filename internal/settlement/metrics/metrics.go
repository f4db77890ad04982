package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the settlement module.
type Metrics struct {
	// Requests settled by kind (purchase, liquidation)
	SettledRequests *prometheus.CounterVec

	// Batch outcomes by operation and result
	BatchOutcome *prometheus.CounterVec

	// Full batch settlement latency
	BatchLatency prometheus.Histogram
}

// New creates a Metrics instance with all settlement metrics registered.
func New() *Metrics {
	return &Metrics{
		SettledRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xftledger_settlement_requests_total",
			Help: "Total settled intake requests by kind",
		}, []string{"kind"}),

		BatchOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xftledger_settlement_batches_total",
			Help: "Total settlement batch outcomes by operation and result",
		}, []string{"op", "outcome"}), // op: "settle", "dividends", "adjust"

		BatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xftledger_settlement_batch_duration_seconds",
			Help:    "Duration of full settlement batches including validation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncSettled records one settled request of the given kind.
func (m *Metrics) IncSettled(kind string) {
	if m != nil {
		m.SettledRequests.WithLabelValues(kind).Inc()
	}
}

// IncBatch records a batch outcome.
func (m *Metrics) IncBatch(op, outcome string) {
	if m != nil {
		m.BatchOutcome.WithLabelValues(op, outcome).Inc()
	}
}

// ObserveBatchLatency records the duration of a settlement batch.
func (m *Metrics) ObserveBatchLatency(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}
