package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yieldplay/yieldplay/internal/domain"
)

const leaderboardTTL = 30 * time.Second

// LeaderboardCache implements domain.LeaderboardCache using Redis string
// values with JSON-serialized pages. One key per distinct query; a version
// counter in the key prefix lets Invalidate drop every page at once without
// scanning.
//
// Key schema:
//
//	leaderboard:ver                          - integer version counter
//	leaderboard:{ver}:{metric}:{search}:{limit}:{offset} - JSON page
type LeaderboardCache struct {
	rdb *redis.Client
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
func NewLeaderboardCache(c *Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.Underlying()}
}

const leaderboardVerKey = "leaderboard:ver"

func (lc *LeaderboardCache) pageKey(ctx context.Context, q domain.LeaderboardQuery) (string, error) {
	ver, err := lc.rdb.Get(ctx, leaderboardVerKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis: leaderboard version: %w", err)
	}
	return fmt.Sprintf("leaderboard:%d:%s:%s:%d:%d",
		ver, q.Metric, q.Search, q.Limit, q.Offset), nil
}

// Get returns the cached page for a query, or domain.ErrNotFound on a miss.
func (lc *LeaderboardCache) Get(ctx context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, error) {
	key, err := lc.pageKey(ctx, q)
	if err != nil {
		return nil, err
	}

	data, err := lc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get leaderboard page: %w", err)
	}

	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("redis: unmarshal leaderboard page: %w", err)
	}
	return entries, nil
}

// Set stores a page for a query with a 30-second TTL.
func (lc *LeaderboardCache) Set(ctx context.Context, q domain.LeaderboardQuery, entries []domain.LeaderboardEntry) error {
	key, err := lc.pageKey(ctx, q)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("redis: marshal leaderboard page: %w", err)
	}
	if err := lc.rdb.Set(ctx, key, data, leaderboardTTL).Err(); err != nil {
		return fmt.Errorf("redis: set leaderboard page: %w", err)
	}
	return nil
}

// Invalidate bumps the version counter, orphaning every cached page. Orphans
// expire on their own TTL.
func (lc *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := lc.rdb.Incr(ctx, leaderboardVerKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
