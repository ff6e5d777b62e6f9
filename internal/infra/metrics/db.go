package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolAcquireWaits) }

var (
	// state: total|idle|acquired|max
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradematch_db_pool_connections",
			Help: "Postgres pool connections by state, sampled by the stats worker.",
		},
		[]string{"state"},
	)

	dbPoolAcquireWaits = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tradematch_db_pool_empty_acquires",
		Help: "Cumulative acquires that had to wait for a free connection.",
	})
)

// PoolSample is one reading of the connection pool.
type PoolSample struct {
	Total, Idle, Acquired, Max int32
	EmptyAcquires              int64
}

func SetDBPool(s PoolSample) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolAcquireWaits.Set(float64(s.EmptyAcquires))
}
