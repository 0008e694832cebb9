package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DecisionsTotal *prometheus.CounterVec
	DegradedTotal  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dorkforge_quota_decisions_total",
			Help: "Quota decisions by tier and outcome",
		}, []string{"tier", "outcome"}),
		DegradedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dorkforge_quota_degraded_total",
			Help: "Quota evaluations that fell back because a dependency failed or was missing",
		}, []string{"reason"}),
	}
}

func (m *Metrics) ObserveDecision(tier string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.DecisionsTotal.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) IncrementDegraded(reason string) {
	if m == nil {
		return
	}
	m.DegradedTotal.WithLabelValues(reason).Inc()
}
