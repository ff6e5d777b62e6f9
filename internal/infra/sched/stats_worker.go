package sched

import (
	"context"
	"time"

	"tradematch/internal/domain/ports/repository"
	"tradematch/internal/infra/metrics"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// PoolStatter is satisfied by *pgxpool.Pool.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// StatsWorker periodically publishes match counts per status and connection
// pool gauges.
type StatsWorker struct {
	interval time.Duration
	matches  repository.MatchRepository
	pool     PoolStatter
	log      *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, matches repository.MatchRepository, pool PoolStatter, logger *zerolog.Logger) *StatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "StatsWorker").Logger()
	return &StatsWorker{
		interval: interval,
		matches:  matches,
		pool:     pool,
		log:      &l,
	}
}

// Run collects once immediately, then every interval until ctx is done.
func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Collect(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.Collect(ctx)
		}
	}
}

// Collect runs one pass. Errors are logged; the next tick retries.
func (w *StatsWorker) Collect(ctx context.Context) {
	if w.pool != nil {
		if st := w.pool.Stat(); st != nil {
			metrics.SetDBPool(metrics.PoolSample{
				Total:         st.TotalConns(),
				Idle:          st.IdleConns(),
				Acquired:      st.AcquiredConns(),
				Max:           st.MaxConns(),
				EmptyAcquires: st.EmptyAcquireCount(),
			})
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	counts, err := w.matches.CountByStatus(runCtx, repository.NoTX)
	if err != nil {
		w.log.Error().Err(err).Msg("stats worker: count matches by status")
		return
	}
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[string(st)] = n
	}
	metrics.SetMatchesByStatus(out)
	w.log.Debug().Interface("matches", out).Msg("stats published")
}
