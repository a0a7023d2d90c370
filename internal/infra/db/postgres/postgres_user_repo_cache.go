package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/metrics"
	red "codehub-mentor/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches single-user lookups. Accounts are owned by
// the platform, so entries simply age out after ttl.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration) repository.UserRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func userIDKey(id string) string { return fmt.Sprintf("user:id:%s", id) }

func userNameKey(username string) string {
	return fmt.Sprintf("user:name:%s", strings.ToLower(strings.TrimSpace(username)))
}

func (d *userRepoCacheDecorator) lookup(ctx context.Context, key string) *model.User {
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var u model.User
		if json.Unmarshal([]byte(val), &u) == nil {
			metrics.IncCacheLookup("user", "hit")
			return &u
		}
	case !red.IsMiss(err):
		metrics.IncCacheLookup("user", "error")
		return nil
	}
	metrics.IncCacheLookup("user", "miss")
	return nil
}

// warm stores the user under both keys so either lookup hits next time.
func (d *userRepoCacheDecorator) warm(ctx context.Context, u *model.User) {
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, userIDKey(u.ID), b, d.ttl)
	_ = d.cache.Set(ctx, userNameKey(u.Username), b, d.ttl)
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	// Reads inside a transaction must see the transaction's view.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	if u := d.lookup(ctx, userIDKey(id)); u != nil {
		return u, nil
	}
	u, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, u)
	return u, nil
}

func (d *userRepoCacheDecorator) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	if tx != nil {
		return d.inner.FindByUsername(ctx, tx, username)
	}
	if u := d.lookup(ctx, userNameKey(username)); u != nil {
		return u, nil
	}
	u, err := d.inner.FindByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, u)
	return u, nil
}

func (d *userRepoCacheDecorator) Search(ctx context.Context, tx repository.Tx, query, excludeID string, limit int) ([]*model.User, error) {
	return d.inner.Search(ctx, tx, query, excludeID, limit)
}
