package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps a day's key around past midnight in every timezone
const counterTTL = 48 * time.Hour

// RedisConfig holds configuration for Redis connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisLimiter keeps the counters as INCR keys
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter connects and pings Redis
func NewRedisLimiter(ctx context.Context, cfg RedisConfig) (*RedisLimiter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisLimiter{rdb: rdb}, nil
}

func usageKey(userID, day string) string {
	return "usage:" + userID + ":" + day
}

// Check reads the counter, creating it at zero when missing
func (l *RedisLimiter) Check(ctx context.Context, userID, day string) (Usage, error) {
	key := usageKey(userID, day)

	created, err := l.rdb.SetNX(ctx, key, 0, counterTTL).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("failed to ensure usage key: %w", err)
	}

	count, err := l.rdb.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return Usage{Exists: !created}, nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read usage key: %w", err)
	}
	return Usage{Count: count, Exists: !created}, nil
}

// Increment adds one scan with INCR and refreshes the expiry
func (l *RedisLimiter) Increment(ctx context.Context, userID, day string) (int, error) {
	key := usageKey(userID, day)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, counterTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return int(incr.Val()), nil
}

// Close closes the Redis connection
func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}
