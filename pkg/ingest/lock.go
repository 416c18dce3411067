package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/reviewpilot/platform/pkg/common/logger"
)

// Locker guards a store against overlapping sync runs (manual trigger racing
// the scheduler). A nil Locker disables guarding.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// RedisLocker implements Locker with a SETNX lease. The TTL bounds how long a
// crashed sync can hold the guard.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Only release our own lease; an expired lock may have been re-acquired.
		current, err := l.client.Get(context.Background(), key).Result()
		if err == nil && current == token {
			if err := l.client.Del(context.Background(), key).Err(); err != nil {
				logger.Log.WithError(err).WithField("key", key).Warn("failed to release sync lock")
			}
		}
	}
	return release, true, nil
}
