package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
	"tradematch/internal/infra/metrics"
	red "tradematch/internal/infra/redis"
)

var _ repository.ProfileRepository = (*profileRepoCacheDecorator)(nil)

// profileRepoCacheDecorator caches profile lookups; the plan tier is read on
// every reveal. Redis failures degrade to the inner repository.
type profileRepoCacheDecorator struct {
	inner repository.ProfileRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewProfileRepoCacheDecorator(inner repository.ProfileRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ProfileRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &profileRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func profileKey(userID string) string { return fmt.Sprintf("profile:%s", userID) }

func (d *profileRepoCacheDecorator) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	// Reads inside a transaction must see the transaction's view.
	if tx != nil {
		return d.inner.FindByUserID(ctx, tx, userID)
	}
	key := profileKey(userID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Profile
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheLookup("profile", "hit")
			return &p, nil
		}
		metrics.IncCacheLookup("profile", "miss")
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("profile cache get failed")
		metrics.IncCacheLookup("profile", "error")
	} else {
		metrics.IncCacheLookup("profile", "miss")
	}

	p, err := d.inner.FindByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("profile cache set failed")
		}
	}
	return p, nil
}

// Save invalidates before writing so a plan change is never masked by a stale entry.
func (d *profileRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if p != nil {
		if err := d.cache.Del(ctx, profileKey(p.UserID)); err != nil {
			d.log.Warn().Err(err).Str("user_id", p.UserID).Msg("profile cache invalidate failed")
		}
	}
	return d.inner.Save(ctx, tx, p)
}
