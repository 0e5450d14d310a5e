package httpx

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type redisRateLimiter struct {
	client  *redis.Client
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

// NewRedisRateLimiter constructs a Redis backed rate limiter so that every
// API process shares one budget per client.
func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRedisRateLimiter(client, logger), nil
}

func newRedisRateLimiter(client *redis.Client, logger *slog.Logger) *redisRateLimiter {
	return &redisRateLimiter{
		client:  client,
		logger:  logger,
		prefix:  "watchdog:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

// Allow increments the window counter and starts its expiry in one round trip.
// Redis failures let the request through.
func (rl *redisRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		rl.logRedisError("incr", err)
		return rateDecision{allowed: true}
	}
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	counter := int(incr.Val())
	return rateDecision{
		allowed:   counter <= limit,
		count:     counter,
		windowEnd: time.Now().Add(remaining),
	}
}

func (rl *redisRateLimiter) Close() {
	if rl.client != nil {
		_ = rl.client.Close()
	}
}

func (rl *redisRateLimiter) logRedisError(op string, err error) {
	if rl.logger == nil {
		return
	}
	rl.logger.Error("redis rate limiter error", "op", op, "error", err)
}
