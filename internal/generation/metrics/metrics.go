package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for generation requests.
const (
	OutcomeSuccess       = "success"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeUpstreamError = "upstream_error"
	OutcomeNotConfigured = "not_configured"
)

type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	LLMDuration        prometheus.Histogram
	BestEffortFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dorkforge_generation_requests_total",
			Help: "Generation requests by outcome",
		}, []string{"outcome"}),
		LLMDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dorkforge_generation_llm_duration_seconds",
			Help:    "Latency of the text-generation call",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		BestEffortFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dorkforge_generation_best_effort_failures_total",
			Help: "Failed post-generation bookkeeping steps that were logged and skipped",
		}, []string{"step"}),
	}
}

func (m *Metrics) IncrementRequests(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLMDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementBestEffortFailure(step string) {
	if m == nil {
		return
	}
	m.BestEffortFailures.WithLabelValues(step).Inc()
}
