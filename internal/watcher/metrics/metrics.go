package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the watcher module.
type Metrics struct {
	WatchSessions     prometheus.Counter
	Polls             prometheus.Counter
	TransfersObserved prometheus.Counter
	WhalesFlagged     prometheus.Counter
	PollErrors        prometheus.Counter
}

// New creates a new Metrics instance with all watcher metrics registered.
func New() *Metrics {
	return &Metrics{
		WatchSessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whaled_watch_sessions_total",
			Help: "Total number of watch sessions started",
		}),
		Polls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whaled_watch_polls_total",
			Help: "Total number of transfer log polls",
		}),
		TransfersObserved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whaled_transfers_observed_total",
			Help: "Total number of transfer logs observed",
		}),
		WhalesFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whaled_watch_whales_flagged_total",
			Help: "Total number of transfers over the whale threshold",
		}),
		PollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whaled_watch_poll_errors_total",
			Help: "Total number of failed transfer log polls",
		}),
	}
}

func (m *Metrics) IncrementWatchSessions() {
	if m == nil {
		return
	}
	m.WatchSessions.Inc()
}

func (m *Metrics) IncrementPolls() {
	if m == nil {
		return
	}
	m.Polls.Inc()
}

func (m *Metrics) AddTransfersObserved(n int) {
	if m == nil {
		return
	}
	m.TransfersObserved.Add(float64(n))
}

func (m *Metrics) IncrementWhalesFlagged() {
	if m == nil {
		return
	}
	m.WhalesFlagged.Inc()
}

func (m *Metrics) IncrementPollErrors() {
	if m == nil {
		return
	}
	m.PollErrors.Inc()
}
