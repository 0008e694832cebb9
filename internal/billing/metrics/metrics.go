package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook results.
const (
	ResultApplied  = "applied"
	ResultIgnored  = "ignored"
	ResultFailed   = "failed"
	ResultRejected = "rejected"
)

type Metrics struct {
	WebhookEvents    *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dorkforge_billing_webhook_events_total",
			Help: "Payment webhook deliveries by event type and result",
		}, []string{"type", "result"}),
		CheckoutSessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dorkforge_billing_checkout_sessions_total",
			Help: "Checkout session creation attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementWebhook(eventType, result string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) IncrementCheckout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(outcome).Inc()
}
