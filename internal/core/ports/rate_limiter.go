package ports

import (
	"context"
	"time"
)

// RateLimitRepository stores fixed-window request counters.
type RateLimitRepository interface {
	// IncrementWindow bumps the counter for key in the current window and
	// returns the new count and the window start.
	IncrementWindow(ctx context.Context, key string, window, ttl time.Duration) (int, time.Time, error)
}

// RateLimiterService decides whether a request from the given client key may
// proceed.
type RateLimiterService interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining, limit int, reset time.Time, err error)
}
