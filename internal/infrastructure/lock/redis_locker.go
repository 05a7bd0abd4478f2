// Package lock provides cross-process job locks backed by Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/medierp/ledger/internal/application/asset"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ledger:lock:"

// RedisJobLocker takes non-blocking locks with redislock. A lock that
// is not released expires after its TTL.
type RedisJobLocker struct {
	client *redislock.Client
	logger *zap.Logger
}

// NewRedisJobLocker creates a locker on client
func NewRedisJobLocker(client redis.UniversalClient, logger *zap.Logger) *RedisJobLocker {
	return &RedisJobLocker{client: redislock.New(client), logger: logger}
}

// Obtain takes key once, without retrying. A key held elsewhere yields
// asset.ErrLockHeld.
func (l *RedisJobLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lk, err := l.client.Obtain(ctx, keyPrefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, asset.ErrLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	l.logger.Debug("job lock obtained", zap.String("key", key), zap.Duration("ttl", ttl))

	return func(ctx context.Context) error {
		err := lk.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("job lock expired before release", zap.String("key", key))
			return nil
		}
		return err
	}, nil
}

var _ asset.JobLocker = (*RedisJobLocker)(nil)
