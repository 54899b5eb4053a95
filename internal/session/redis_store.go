package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps each session as a hash. Expiry is handled by redis itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key, field string) (json.RawMessage, error) {
	value, err := s.client.HGet(ctx, redisKey(key), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error("Failed to read session field from redis", err, map[string]interface{}{
			"session_key": key,
			"field":       field,
		})
		return nil, fmt.Errorf("read session %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (s *RedisStore) Set(ctx context.Context, key, field string, value json.RawMessage) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey(key), field, []byte(value))
		pipe.Expire(ctx, redisKey(key), s.ttl)
		return nil
	})
	if err != nil {
		logger.Error("Failed to write session field to redis", err, map[string]interface{}{
			"session_key": key,
			"field":       field,
		})
		return fmt.Errorf("write session %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// Purge is a no-op: redis evicts expired hashes on its own
func (s *RedisStore) Purge(ctx context.Context) (int64, error) {
	return 0, nil
}
