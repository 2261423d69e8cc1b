package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueCents,
		webhookEventsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status transition (pending/confirmed/expired/cancelled/rejected).",
		},
		[]string{"status"},
	)

	paymentsRevenueCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_revenue_cents_total",
			Help: "Total monetary value of confirmed payments, in cents.",
		},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Gateway webhook deliveries by handling result (ok/ignored/not_found/error).",
		},
		[]string{"result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(amountCents int64) {
	paymentsRevenueCents.Add(float64(amountCents))
}

func IncWebhookEvent(result string) {
	webhookEventsTotal.WithLabelValues(norm(result)).Inc()
}
