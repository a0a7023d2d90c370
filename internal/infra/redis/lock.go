package redis

import (
	"context"
	"fmt"
	"time"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SessionLocker serializes chat turns per session. A held lock expires on
// its own after the TTL so a crashed turn cannot wedge the session.
type SessionLocker struct {
	cli     *redis.Client
	tries   int
	backoff time.Duration
}

func NewLocker(c *Client) *SessionLocker {
	return &SessionLocker{cli: c.cli, tries: 5, backoff: 50 * time.Millisecond}
}

// TryLock returns domain.ErrSessionBusy when another turn holds the key.
func (l *SessionLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.tries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			lastErr = err
		} else if ok {
			metrics.IncSessionLock("acquired")
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	if lastErr != nil {
		metrics.IncSessionLock("error")
		return "", fmt.Errorf("session lock: %w", lastErr)
	}
	metrics.IncSessionLock("busy")
	return "", domain.ErrSessionBusy
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Unlock releases the key only if it still holds token.
func (l *SessionLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	if err == redis.Nil {
		return nil
	}
	return err
}
