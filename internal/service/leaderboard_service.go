package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yieldplay/yieldplay/internal/domain"
)

const (
	leaderboardMinBets      = 10
	leaderboardDefaultLimit = 25
	leaderboardMaxLimit     = 100
)

// LeaderboardService is a read-only ranked projection over the user store,
// fronted by a short-TTL cache.
type LeaderboardService struct {
	users  domain.UserStore
	cache  domain.LeaderboardCache // optional
	logger *slog.Logger
}

// NewLeaderboardService creates a LeaderboardService. cache may be nil.
func NewLeaderboardService(users domain.UserStore, cache domain.LeaderboardCache, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{users: users, cache: cache, logger: logger}
}

// Query returns one ranked leaderboard page. Users qualify with at least 10
// bets and leaderboard visibility on; dense rank is offset + row index + 1.
func (s *LeaderboardService) Query(ctx context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, error) {
	if q.Metric == "" {
		q.Metric = domain.MetricWisdom
	}
	if !q.Metric.Valid() {
		return nil, domain.ValidationError{Field: "metric", Reason: "must be accuracy, wisdom, or quests"}
	}
	if q.Limit <= 0 {
		q.Limit = leaderboardDefaultLimit
	}
	if q.Limit > leaderboardMaxLimit {
		q.Limit = leaderboardMaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	if s.cache != nil {
		if entries, err := s.cache.Get(ctx, q); err == nil {
			return entries, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "leaderboard_service: cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	users, err := s.users.Leaderboard(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("leaderboard_service: query: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:            q.Offset + i + 1,
			Address:         u.Address,
			DisplayName:     u.DisplayName,
			Accuracy:        u.Accuracy,
			WisdomIndex:     u.WisdomIndex,
			TotalBets:       u.TotalBets,
			Wins:            u.Wins,
			StreakCount:     u.StreakCount,
			CompletedQuests: u.CompletedQuests,
			Level:           u.Level,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, q, entries); err != nil {
			s.logger.WarnContext(ctx, "leaderboard_service: cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return entries, nil
}
