package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookups) }

// result: hit|miss|error. An error lookup is served from Postgres.
var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradematch_cache_lookups_total",
		Help: "Read-through cache lookups by cache and result.",
	},
	[]string{"cache", "result"},
)

func IncCacheLookup(cache, result string) {
	cacheLookups.WithLabelValues(norm(cache), norm(result)).Inc()
}
