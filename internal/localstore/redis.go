package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RedisKeyPrefix is the Redis key prefix for per-client stores
	RedisKeyPrefix = "localstore:"
	// RedisStoreTTL keeps an idle client's store around for 30 days
	RedisStoreTTL = 30 * 24 * time.Hour
)

// Redis keeps one client's store in a Redis hash so state survives BFF restarts.
type Redis struct {
	client *redis.Client
	key    string
	quota  int
}

// NewRedis creates a store for clientID. quota <= 0 selects DefaultQuota.
func NewRedis(client *redis.Client, clientID string, quota int) *Redis {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Redis{client: client, key: RedisKeyPrefix + clientID, quota: quota}
}

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *Redis) Set(ctx context.Context, key, value string) error {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return err
	}
	used := 0
	for k, v := range all {
		if k == key {
			continue
		}
		used += entrySize(k, v)
	}
	if used+entrySize(key, value) > s.quota {
		return &QuotaError{Key: key, Quota: s.quota}
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	pipe.Expire(ctx, s.key, RedisStoreTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Redis) Remove(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.key, key).Err()
}

func (s *Redis) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
