package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sweepRunsTotal,
		sweepItemsTotal,
	)
}

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Sweep ticks by outcome (ok/skipped/error).",
		},
		[]string{"outcome"},
	)

	sweepItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_items_total",
			Help: "Items handled by the sweep job, by pass and result.",
		},
		[]string{"pass", "result"},
	)
)

func IncSweepRun(outcome string) {
	sweepRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSweepItem(pass, result string) {
	sweepItemsTotal.WithLabelValues(norm(pass), norm(result)).Inc()
}
