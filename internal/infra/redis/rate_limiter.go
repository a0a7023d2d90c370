package redis

import (
	"context"
	"strconv"
	"time"

	"codehub-mentor/internal/infra/metrics"
)

// RateLimiter counts hits per fixed window. Each window gets its own key
// (base key plus window index) so a counter that lost its TTL can never
// block a later window.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow reports whether one more hit on key fits within limit per window.
// A non-positive limit disables the check.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	bucket := r.now().UnixNano() / int64(window)
	k := key + ":" + strconv.FormatInt(bucket, 10)

	count, err := r.client.Incr(ctx, k)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, window+time.Second); err != nil {
			return false, err
		}
	}
	if count > int64(limit) {
		metrics.IncRateLimited()
		return false, nil
	}
	return true, nil
}
