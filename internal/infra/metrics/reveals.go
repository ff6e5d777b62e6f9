package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(revealsTotal, revealDuration)
}

var (
	// outcome: granted|idempotent|quota_exceeded|not_found|error
	revealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reveals_total",
			Help: "Reveal attempts by outcome.",
		},
		[]string{"outcome"},
	)

	revealDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reveal_duration_seconds",
			Help:    "Duration of the reveal operation in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"outcome"},
	)
)

func ObserveReveal(outcome string, seconds float64) {
	o := norm(outcome)
	revealsTotal.WithLabelValues(o).Inc()
	revealDuration.WithLabelValues(o).Observe(seconds)
}
