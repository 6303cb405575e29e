// ABOUTME: Redis session backend storing one hash per session
// ABOUTME: Expiry is delegated to Redis key TTLs refreshed on every write

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps connection failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore keeps sessions in Redis under prefix + ":" + sessionID.
type RedisStore struct {
	rdb      redis.UniversalClient
	prefix   string
	lifetime time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps rdb. An empty prefix defaults to "logon:session".
func NewRedisStore(rdb redis.UniversalClient, prefix string, lifetime time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "logon:session"
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &RedisStore{rdb: rdb, prefix: prefix, lifetime: lifetime}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	v, err := s.rdb.HGet(ctx, s.key(sessionID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	k := s.key(sessionID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, key, value)
		pipe.Expire(ctx, k, s.lifetime)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
