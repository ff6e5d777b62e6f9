package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tradematch/internal/config"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/adapter"
	"tradematch/internal/domain/ports/repository"
	"tradematch/internal/infra/api"
	"tradematch/internal/infra/api/apiv1"
	pg "tradematch/internal/infra/db/postgres"
	httpapi "tradematch/internal/infra/http"
	"tradematch/internal/infra/logging"
	"tradematch/internal/infra/metrics"
	"tradematch/internal/infra/ratelimit"
	red "tradematch/internal/infra/redis"
	"tradematch/internal/infra/sched"
	"tradematch/internal/infra/security"
	"tradematch/internal/usecase"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted fields)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("tradematch stopped with error")
	}
	logger.Info().Msg("tradematch stopped")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting tradematch")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	// ---- Redis ----
	checks := []httpapi.ReadinessCheck{{Name: "postgres", Check: pool.Ping}}
	var (
		limiter     adapter.RateLimiter
		redisClient red.RedisClient
	)
	rc, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		// Throttling falls back to a per-process window; profiles are read uncached.
		logger.Warn().Err(err).Msg("redis unavailable; using in-memory rate limiter")
		limiter = ratelimit.NewMemory()
	} else {
		defer rc.Close()
		redisClient = rc
		limiter = red.NewRateLimiter(rc)
		checks = append(checks, httpapi.ReadinessCheck{Name: "redis", Check: rc.Ping})
	}

	// ---- Repositories ----
	var matchOpts []pg.MatchRepoOption
	if cfg.Security.ContactKey != "" {
		sealer, err := security.NewContactSealer(cfg.Security.ContactKey)
		if err != nil {
			return err
		}
		matchOpts = append(matchOpts, pg.WithContactSealer(sealer))
	} else {
		logger.Warn().Msg("security.contact_key not set; counterparty contacts are stored unsealed")
	}
	matchRepo := pg.NewMatchRepo(pool, matchOpts...)
	ledgerRepo := pg.NewRevealLedgerRepo(pool)
	profiles := cachedProfiles(pg.NewProfileRepo(pool), redisClient, cfg.Redis.TTL, logger)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	plans, err := planCatalog(cfg)
	if err != nil {
		return err
	}
	matchUC := usecase.NewMatchUseCase(matchRepo, logger)
	revealUC := usecase.NewRevealUseCase(
		matchRepo, ledgerRepo, profiles, plans, txManager, logger,
		usecase.WithRetry(uint64(cfg.Reveal.RetryAttempts), cfg.Reveal.RetryBaseDelay),
	)

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	guards := []func(next http.Handler) http.Handler{api.RequireVerifiedEmail(cfg.Auth.RequireVerifiedEmail)}
	if cfg.RateLimit.Enabled {
		guards = append(guards, api.Throttle(limiter, "reveal", cfg.RateLimit.RevealLimit, cfg.RateLimit.RevealWindow, nil, logger))
	}
	v1 := apiv1.NewServer(matchUC, revealUC, apiv1.Options{
		DefaultLimit: cfg.Listing.DefaultLimit,
		MaxLimit:     cfg.Listing.MaxLimit,
		Authenticate: auth.Authenticate(logger),
		RevealGuards: guards,
	}, logger)
	router := httpapi.NewRouter(cfg.HTTP, v1, checks, logger)
	server := httpapi.NewServer(cfg.HTTP, router, logger)

	// ---- Workers ----
	stats := sched.NewStatsWorker(cfg.Workers.StatsInterval, matchRepo, pool, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		if err := stats.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// cachedProfiles puts the Redis read-through cache in front of the profile
// repository when Redis is reachable.
func cachedProfiles(inner repository.ProfileRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ProfileRepository {
	if cache == nil {
		return inner
	}
	return pg.NewProfileRepoCacheDecorator(inner, cache, ttl, logger)
}

func planCatalog(cfg *config.Config) (*model.PlanCatalog, error) {
	plans := make([]*model.Plan, 0, len(cfg.Plans))
	for tier, pc := range cfg.Plans {
		name := pc.Name
		if name == "" {
			name = tier
		}
		p, err := model.NewPlan(model.PlanTier(tier), name, pc.MonthlyReveals, pc.Unlimited)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return model.NewPlanCatalog(cfg.Reveal.FreeMonthlyAllowance, plans...), nil
}
