package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// refreshLua extends a lock's TTL only while the caller still owns it.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// LockManager implements domain.LockManager using SET NX with a TTL and
// Lua-based conditional unlock and refresh.
type LockManager struct {
	c         *Client
	rdb       *redis.Client
	unlockSc  *redis.Script
	refreshSc *redis.Script
	logger    *slog.Logger
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client, logger *slog.Logger) *LockManager {
	return &LockManager{
		c:         c,
		rdb:       c.Underlying(),
		unlockSc:  redis.NewScript(unlockLua),
		refreshSc: redis.NewScript(refreshLua),
		logger:    logger.With(slog.String("component", "redis_lock")),
	}
}

// Hold acquires key and refreshes it every ttl/3 until ctx is done, then
// releases it. The returned channel is closed if a refresh finds the lease
// gone or taken over.
func (lm *LockManager) Hold(ctx context.Context, key string, ttl time.Duration) (<-chan struct{}, error) {
	token := uuid.NewString()
	lk := lm.c.Key("lock", key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hold lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: hold lock %s: %w", key, domain.ErrLockHeld)
	}

	lost := make(chan struct{})
	go func() {
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = lm.unlockSc.Run(releaseCtx, lm.rdb, []string{lk}, token).Err()
				cancel()
				return
			case <-ticker.C:
				n, err := lm.refreshSc.Run(ctx, lm.rdb, []string{lk}, token, ttl.Milliseconds()).Int64()
				if err != nil {
					// Transient errors are retried on the next tick while the TTL lasts.
					lm.logger.Warn("lock refresh failed", slog.String("key", key), slog.String("error", err.Error()))
					continue
				}
				if n == 0 {
					lm.logger.Error("lock lease lost", slog.String("key", key))
					close(lost)
					return
				}
			}
		}
	}()
	return lost, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
