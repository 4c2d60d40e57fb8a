package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	WhalesMinted  prometheus.Counter
	MintsRejected *prometheus.CounterVec
	MintDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		WhalesMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whaled_whales_minted_total",
			Help: "Total number of whale tokens minted",
		}),
		MintsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "whaled_mints_rejected_total",
			Help: "Total number of rejected mint attempts by reason",
		}, []string{"reason"}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "whaled_mint_duration_seconds",
			Help:    "Duration of mint operations (ledger critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementWhalesMinted increments the minted counter by 1.
func (m *Metrics) IncrementWhalesMinted() {
	if m == nil {
		return
	}
	m.WhalesMinted.Inc()
}

// IncrementMintsRejected increments the rejected counter for a reason.
func (m *Metrics) IncrementMintsRejected(reason string) {
	if m == nil {
		return
	}
	m.MintsRejected.WithLabelValues(reason).Inc()
}

// ObserveMintDuration records the duration of one mint in seconds.
func (m *Metrics) ObserveMintDuration(seconds float64) {
	if m == nil {
		return
	}
	m.MintDuration.Observe(seconds)
}
