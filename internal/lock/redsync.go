package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Unlock releases a held lock. A lock that expired, or was taken over after
// expiring, is left alone and reported as released.
type Unlock func(ctx context.Context) error

// RedisLocker hands out single-attempt mutexes backed by Redis.
type RedisLocker struct {
	rs *redsync.Redsync
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rs: redsync.New(goredis.NewPool(rdb))}
}

// TryLock makes one attempt to take key for ttl. acquired is false, with a
// nil error, when someone else holds it.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, bool, error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("TryLock: %w", err)
	}

	unlock := func(ctx context.Context) error {
		_, err := mutex.UnlockContext(ctx)
		if err == nil || errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return nil
		}
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) {
			return nil
		}
		return fmt.Errorf("Unlock: %w", err)
	}
	return unlock, true, nil
}
