//go:build integration

package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"memberd/pkg/testutil/containers"
)

func newLimiter(t *testing.T, maxAttempts int) *Limiter {
	t.Helper()
	client := containers.StartRedis(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(client, maxAttempts, time.Minute, log)
}

func TestAllowWithinBudget(t *testing.T) {
	l := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "clerk", "10.0.0.1"), "attempt %d", i+1)
	}
	assert.False(t, l.Allow(ctx, "clerk", "10.0.0.1"), "fourth attempt exceeds budget")
}

func TestWindowsAreKeyedPerUsernameAndIP(t *testing.T) {
	l := newLimiter(t, 1)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "clerk", "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "clerk", "10.0.0.1"))

	// Same user from another address, and another user from the same
	// address, both have their own budget.
	assert.True(t, l.Allow(ctx, "clerk", "10.0.0.2"))
	assert.True(t, l.Allow(ctx, "admin", "10.0.0.1"))
}

func TestResetClearsWindow(t *testing.T) {
	l := newLimiter(t, 1)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "clerk", "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "clerk", "10.0.0.1"))

	l.Reset(ctx, "clerk", "10.0.0.1")
	assert.True(t, l.Allow(ctx, "clerk", "10.0.0.1"))
}

func TestNilClientFailsOpen(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := New(nil, 1, time.Minute, log)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(ctx, "clerk", "10.0.0.1"))
	}
}
