package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient backs sessions, the per-client local stores, profile events and
// the shared auth limiter.
var RedisClient *redis.Client

// redisOptions parses uri and applies the pool settings.
func redisOptions(uri string) (*redis.Options, error) {
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 20
	opt.MinIdleConns = 4
	opt.MaxRetries = 2
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second
	opt.PoolTimeout = 3 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	if opt.ClientName == "" {
		opt.ClientName = "vibes-bff"
	}
	return opt, nil
}

// ConnectRedis opens RedisClient and pings it.
func ConnectRedis(uri string) error {
	opt, err := redisOptions(uri)
	if err != nil {
		return err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}
	RedisClient = client

	log.Printf("✅ Connected to Redis (db %d)", opt.DB)
	return nil
}

// DisconnectRedis closes the Redis connection
func DisconnectRedis() error {
	if RedisClient == nil {
		return nil
	}
	err := RedisClient.Close()
	RedisClient = nil
	return err
}
