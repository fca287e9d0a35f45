package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type IdempotencyCacheEntry struct {
	Key          string    `json:"key"`
	UserID       uuid.UUID `json:"user_id"`
	RequestHash  string    `json:"request_hash"`
	StatusCode   int       `json:"status_code"`
	ResponseBody []byte    `json:"response_body"`
	CreatedAt    time.Time `json:"created_at"`
}

// Complete reports whether the entry holds a response. A reserved entry
// without one marks a request that is still being handled.
func (e *IdempotencyCacheEntry) Complete() bool {
	return e.StatusCode != 0
}

// pendingTTL bounds how long a reservation survives a process that died
// before completing or releasing it.
const pendingTTL = time.Minute

// IdempotencyRepository keeps replayable responses in Redis. Entries expire
// on their own so there is nothing to sweep.
type IdempotencyRepository struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewIdempotencyRepository(rdb redis.UniversalClient, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{rdb: rdb, ttl: ttl}
}

func idempotencyKey(key string, userID uuid.UUID) string {
	return "idempotency:" + userID.String() + ":" + key
}

// Get returns nil, nil when no entry is cached.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, userID uuid.UUID) (*IdempotencyCacheEntry, error) {
	raw, err := r.rdb.Get(ctx, idempotencyKey(key, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	var e IdempotencyCacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("Get: decode: %w", err)
	}
	return &e, nil
}

// Reserve claims key for entry before the request is handled. When the key
// is already taken it returns the entry holding it, which may still be
// pending and is nil if the holder expired in between.
func (r *IdempotencyRepository) Reserve(ctx context.Context, entry *IdempotencyCacheEntry) (bool, *IdempotencyCacheEntry, error) {
	pending := *entry
	pending.StatusCode = 0
	pending.ResponseBody = nil
	raw, err := json.Marshal(&pending)
	if err != nil {
		return false, nil, fmt.Errorf("Reserve: encode: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, idempotencyKey(entry.Key, entry.UserID), raw, pendingTTL).Result()
	if err != nil {
		return false, nil, fmt.Errorf("Reserve: %w", err)
	}
	if ok {
		return true, nil, nil
	}

	held, err := r.Get(ctx, entry.Key, entry.UserID)
	if err != nil {
		return false, nil, fmt.Errorf("Reserve: %w", err)
	}
	return false, held, nil
}

// Set stores the completed response, replacing the reservation.
func (r *IdempotencyRepository) Set(ctx context.Context, entry *IdempotencyCacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("Set: encode: %w", err)
	}
	if err := r.rdb.Set(ctx, idempotencyKey(entry.Key, entry.UserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

// Release drops a reservation so that a retry reaches the handler again.
func (r *IdempotencyRepository) Release(ctx context.Context, key string, userID uuid.UUID) error {
	if err := r.rdb.Del(ctx, idempotencyKey(key, userID)).Err(); err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	return nil
}
