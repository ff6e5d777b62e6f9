//go:build !integration

package postgres

import (
	"context"
	"time"

	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
	red "tradematch/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerProfileRepo mocks the database repository that the Profile decorator wraps.
type mockInnerProfileRepo struct {
	SaveFunc         func(ctx context.Context, tx repository.Tx, p *model.Profile) error
	FindByUserIDFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error)
}

func (m *mockInnerProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockInnerProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	return m.FindByUserIDFunc(ctx, tx, userID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc   func(ctx context.Context, keys ...string) error
	PingFunc  func(ctx context.Context) error
	EvalFunc  func(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
	CloseFunc func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return m.EvalFunc(ctx, script, keys, args...)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
