package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/economy"
)

// seedPlayer inserts a user with stats directly, bypassing the wager flow.
func seedPlayer(t *testing.T, e *env, address, name string, bets, wins, streak, quests int, visible bool) {
	t.Helper()
	err := e.ledger.WithTx(context.Background(), func(tx domain.Tx) error {
		u := domain.NewUser(address, e.clock.Now())
		u.DisplayName = name
		u.TotalBets = bets
		u.Wins = wins
		u.Losses = bets - wins
		u.StreakCount = streak
		u.CompletedQuests = quests
		u.ShowOnLeaderboard = visible
		u.YCSpent = dec("100")
		u.YCWon = dec("150")
		economy.RefreshDerived(&u)
		return tx.CreateUser(context.Background(), u)
	})
	require.NoError(t, err)
}

func TestLeaderboardEligibilityAndRanking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	seedPlayer(t, e, "0xaaa1", "ada", 20, 18, 2, 0, true)  // 90% accuracy
	seedPlayer(t, e, "0xaaa2", "bob", 20, 10, 0, 3, true)  // 50% accuracy
	seedPlayer(t, e, "0xaaa3", "cyd", 9, 9, 9, 9, true)    // under 10 bets
	seedPlayer(t, e, "0xaaa4", "dee", 30, 29, 5, 1, false) // hidden

	entries, err := e.board.Query(ctx, domain.LeaderboardQuery{Metric: domain.MetricAccuracy})
	require.NoError(t, err)
	require.Len(t, entries, 2, "sub-threshold and hidden users stay off the board")
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "0xaaa1", entries[0].Address)
	assert.InDelta(t, 90.0, entries[0].Accuracy, 1e-9)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "0xaaa2", entries[1].Address)
}

func TestLeaderboardMetricsAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	seedPlayer(t, e, "0xbbb1", "quester", 15, 5, 0, 8, true)
	seedPlayer(t, e, "0xbbb2", "winner", 15, 14, 3, 1, true)

	byQuests, err := e.board.Query(ctx, domain.LeaderboardQuery{Metric: domain.MetricQuests})
	require.NoError(t, err)
	require.Len(t, byQuests, 2)
	assert.Equal(t, "0xbbb1", byQuests[0].Address)

	byWisdom, err := e.board.Query(ctx, domain.LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, byWisdom, 2)
	assert.Equal(t, "0xbbb2", byWisdom[0].Address, "empty metric defaults to wisdom")

	found, err := e.board.Query(ctx, domain.LeaderboardQuery{Metric: domain.MetricAccuracy, Search: "quest"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "quester", found[0].DisplayName)
}

func TestLeaderboardPagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	for i := 0; i < 5; i++ {
		seedPlayer(t, e, fmt.Sprintf("0xccc%d", i), "", 10+i, 10, 0, i, true)
	}

	page, err := e.board.Query(ctx, domain.LeaderboardQuery{Metric: domain.MetricQuests, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].Rank)
	assert.Equal(t, "0xccc2", page[0].Address)
	assert.Equal(t, 4, page[1].Rank)

	empty, err := e.board.Query(ctx, domain.LeaderboardQuery{Metric: domain.MetricQuests, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLeaderboardRejectsUnknownMetric(t *testing.T) {
	t.Parallel()
	e := newEnv()
	_, err := e.board.Query(context.Background(), domain.LeaderboardQuery{Metric: "xp"})
	assert.True(t, domain.IsValidation(err))
}
