//go:build !integration

package postgres

import (
	"context"
	"sync"
	"time"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	red "codehub-mentor/internal/infra/redis"

	"github.com/go-redis/redis/v8"
)

// mockInnerUserRepo mocks the database repository that the User decorator wraps.
type mockInnerUserRepo struct {
	FindByIDFunc       func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
	FindByUsernameFunc func(ctx context.Context, tx repository.Tx, username string) (*model.User, error)
	SearchFunc         func(ctx context.Context, tx repository.Tx, query, excludeID string, limit int) ([]*model.User, error)
}

func (m *mockInnerUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	return m.FindByUsernameFunc(ctx, tx, username)
}
func (m *mockInnerUserRepo) Search(ctx context.Context, tx repository.Tx, query, excludeID string, limit int) ([]*model.User, error) {
	return m.SearchFunc(ctx, tx, query, excludeID, limit)
}

// memRedis is an in-memory stand-in for the Redis client wrapper.
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

var _ red.RedisClient = (*memRedis)(nil)

func newMemRedis() *memRedis { return &memRedis{data: map[string]string{}} }

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}
func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}
func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
func (m *memRedis) Ping(ctx context.Context) error                      { return nil }
func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *memRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *memRedis) Close() error { return nil }
