package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements a sliding-window limiter on top of a Redis
// sorted set per key (score = request timestamp in milliseconds).
type RateLimiter struct {
	client *redis.Client
}

type Config struct {
	Requests int           // requests allowed per window
	Window   time.Duration // window length
}

var (
	// Auth endpoints get strict limits.
	AuthLimit = Config{Requests: 5, Window: time.Minute}

	// Money movement and event ingestion.
	EventLimit = Config{Requests: 30, Window: time.Minute}

	// Everything else.
	GeneralLimit = Config{Requests: 100, Window: time.Minute}
)

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

type Info struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      time.Time     `json:"reset"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Allowed    bool          `json:"allowed"`
}

// Check records the request under key and reports whether it fits the
// window. The old-entry trim, count and insert run in one pipeline.
func (rl *RateLimiter) Check(ctx context.Context, key string, cfg Config) (*Info, error) {
	now := time.Now()
	windowStart := now.Add(-cfg.Window)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixMilli()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, cfg.Window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := countCmd.Val()
	allowed := count < int64(cfg.Requests)

	info := &Info{
		Limit:     cfg.Requests,
		Remaining: cfg.Requests - int(count) - 1,
		Reset:     now.Add(cfg.Window),
		Allowed:   allowed,
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	if !allowed {
		info.RetryAfter = cfg.Window
	}

	return info, nil
}
