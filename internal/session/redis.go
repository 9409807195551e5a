package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists sessions in Redis with a sliding TTL, giving the
// flow durable per-tab storage: a reload within the TTL restores the exact
// step and payloads.  Keys are namespaced so unrelated flows never collide.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps a connected Redis client.  A non-positive ttl
// defaults to 30 minutes, comfortably longer than any hold deadline.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(key string) string { return "booking:session:" + key }

// Load fetches and decodes the session, or returns nil when absent.  A
// payload that no longer decodes is treated as absent rather than bubbling
// a JSON error into the flow; the machine's stale-restore guard resets it.
func (rs *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	data, err := rs.rdb.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", key, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, nil
	}
	return &s, nil
}

// Save encodes and writes the session, refreshing the TTL.
func (rs *RedisStore) Save(ctx context.Context, key string, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", key, err)
	}
	if err := rs.rdb.Set(ctx, sessionKey(key), data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("save session %q: %w", key, err)
	}
	return nil
}

// Clear deletes the session.
func (rs *RedisStore) Clear(ctx context.Context, key string) error {
	if err := rs.rdb.Del(ctx, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("clear session %q: %w", key, err)
	}
	return nil
}
