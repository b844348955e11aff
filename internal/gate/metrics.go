package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts gate outcomes. A nil *Metrics is a no-op so tests can skip
// registration.
type Metrics struct {
	decisions *prometheus.CounterVec
	stashes   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Gate decisions by outcome.",
		}, []string{"decision"}),
		stashes: factory.NewCounter(prometheus.CounterOpts{
			Name: "gate_redirect_stashes_total",
			Help: "Paths stashed for post-remediation redirect.",
		}),
	}
}

func (m *Metrics) ObserveDecision(d Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(d.String()).Inc()
}

func (m *Metrics) ObserveStash() {
	if m == nil {
		return
	}
	m.stashes.Inc()
}
