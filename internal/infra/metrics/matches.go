package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(matchesTotal, matchStatusChanges)
}

var (
	matchesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matches_total",
			Help: "Stored matches by status, refreshed by the stats worker.",
		},
		[]string{"status"},
	)

	matchStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_status_changes_total",
			Help: "Explicit status decisions by target status.",
		},
		[]string{"status"},
	)
)

func SetMatchesByStatus(counts map[string]int) {
	for status, n := range counts {
		matchesTotal.WithLabelValues(norm(status)).Set(float64(n))
	}
}

func IncMatchStatusChange(status string) {
	matchStatusChanges.WithLabelValues(norm(status)).Inc()
}
