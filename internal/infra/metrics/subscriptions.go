package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExpiredTotal,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscriptions created from confirmed payments, labeled by mode (fresh/stacked).",
		},
		[]string{"mode"},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Prior subscriptions expired while activating a renewal.",
		},
	)
)

func IncSubscriptionActivated(stacked bool) {
	mode := "fresh"
	if stacked {
		mode = "stacked"
	}
	subscriptionsActivatedTotal.WithLabelValues(mode).Inc()
}

func IncSubscriptionExpired() {
	subscriptionsExpiredTotal.Inc()
}
