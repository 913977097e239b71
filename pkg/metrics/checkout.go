package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records intake and webhook reconciliation outcomes.
type CheckoutMetrics struct {
	intakes        *prometheus.CounterVec
	retryExhausted prometheus.Counter
	webhookEvents  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	intakes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_intakes_total",
		Help: "Checkout intake attempts by payment path and outcome.",
	}, []string{"path", "outcome"})
	retryExhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_retry_exhausted_total",
		Help: "Intake transactions that exhausted the contention retry budget.",
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment provider webhook events by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(intakes, retryExhausted, webhookEvents)
	return &CheckoutMetrics{
		intakes:        intakes,
		retryExhausted: retryExhausted,
		webhookEvents:  webhookEvents,
	}
}

// IncIntake counts one intake attempt for the given path ("cod"/"online")
// and outcome ("ok"/"error").
func (c *CheckoutMetrics) IncIntake(path, outcome string) {
	if c == nil || c.intakes == nil {
		return
	}
	c.intakes.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

// IncRetryExhausted counts one exhausted retry budget.
func (c *CheckoutMetrics) IncRetryExhausted() {
	if c == nil || c.retryExhausted == nil {
		return
	}
	c.retryExhausted.Inc()
}

// IncWebhookEvent counts one webhook event by outcome
// ("processed"/"replay"/"failed"/"malformed").
func (c *CheckoutMetrics) IncWebhookEvent(outcome string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
