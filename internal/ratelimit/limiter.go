// Package ratelimit throttles login attempts.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter over redis, keyed per username and
// client IP so one attacker cannot lock out a user from everywhere. Redis
// being down fails open: login availability beats throttling.
type Limiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
}

func New(client *redis.Client, maxAttempts int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Allow records one attempt and reports whether it is within the window
// budget. A nil client (no redis configured) always allows.
func (l *Limiter) Allow(ctx context.Context, username, ip string) bool {
	if l.client == nil {
		return true
	}
	key := fmt.Sprintf("login:%s:%s", username, ip)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return count.Val() <= int64(l.maxAttempts)
}

// Reset clears the window after a successful login so legitimate users are
// not punished for earlier typos.
func (l *Limiter) Reset(ctx context.Context, username, ip string) {
	if l.client == nil {
		return
	}
	key := fmt.Sprintf("login:%s:%s", username, ip)
	if err := l.client.Del(ctx, key).Err(); err != nil {
		l.logger.WarnContext(ctx, "rate limiter reset failed", "error", err)
	}
}
