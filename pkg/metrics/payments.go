package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the payment counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeIgnored = "ignored"
	OutcomePending = "pending"
)

// PaymentMetrics counts checkout, verification and webhook outcomes per provider.
type PaymentMetrics struct {
	checkouts     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment counters on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	m := &PaymentMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "verifications_total",
			Help:      "Synchronous payment verifications by provider and outcome.",
		}, []string{"provider", "outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Provider webhook events by provider, kind and outcome.",
		}, []string{"provider", "kind", "outcome"}),
	}
	reg.MustRegister(m.checkouts, m.verifications, m.webhooks)
	return m
}

// Checkout records a checkout attempt.
func (m *PaymentMetrics) Checkout(provider, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// Verification records a verification attempt.
func (m *PaymentMetrics) Verification(provider, outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// Webhook records a processed webhook event.
func (m *PaymentMetrics) Webhook(provider, kind, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}
