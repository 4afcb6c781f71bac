package domain

import (
	"context"
	"time"
)

// HintCache stores advisor hints with TTL eviction. Owned by the advisor
// adapter; the economy engine never depends on its contents.
type HintCache interface {
	Get(ctx context.Context, question string) (Hint, error)
	Set(ctx context.Context, question string, h Hint) error
}

// LeaderboardCache stores a short-lived snapshot of a leaderboard page.
type LeaderboardCache interface {
	Get(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntry, error)
	Set(ctx context.Context, q LeaderboardQuery, entries []LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// RateLimiter enforces a sliding-window request limit per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed single-flight locks, used so that only
// one replica runs the resolution sweep at a time.
type LockManager interface {
	// Acquire obtains the named lock with a TTL, returning ErrLockHeld when
	// another holder owns it. The returned release function is safe to call
	// more than once.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

// SignalBus carries raw event payloads between components.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
