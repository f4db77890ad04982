package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the share ledger.
type Metrics struct {
	// Mutations by operation and outcome
	Operations *prometheus.CounterVec

	// Reward multiplier updates by kind ("set", "add")
	MultiplierUpdates *prometheus.CounterVec

	// Current holder count
	Holders prometheus.Gauge
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xftledger_ledger_operations_total",
			Help: "Total ledger mutations by operation and outcome",
		}, []string{"op", "outcome"}), // op: mint, burn, transfer, transfer_shares, batch

		MultiplierUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xftledger_ledger_multiplier_updates_total",
			Help: "Total reward multiplier updates by kind",
		}, []string{"kind"}),

		Holders: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xftledger_ledger_holders",
			Help: "Number of accounts with a non-zero share balance",
		}),
	}
}

// IncOperation records a mutation outcome.
func (m *Metrics) IncOperation(op, outcome string) {
	if m != nil {
		m.Operations.WithLabelValues(op, outcome).Inc()
	}
}

// IncMultiplierUpdate records a multiplier update.
func (m *Metrics) IncMultiplierUpdate(kind string) {
	if m != nil {
		m.MultiplierUpdates.WithLabelValues(kind).Inc()
	}
}

// SetHolders records the current holder count.
func (m *Metrics) SetHolders(n int) {
	if m != nil {
		m.Holders.Set(float64(n))
	}
}
