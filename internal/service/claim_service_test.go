package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/economy"
)

const rivalAddr = "0xbbbb00000000000000000000000000000000bbbb"

// settle opens a market, places the given wagers, closes it, and resolves it
// with the outcome. Returns positions in placement order.
func settle(t *testing.T, e *env, outcome domain.Outcome, wagers []struct {
	addr   string
	side   domain.Side
	amount string
}) []domain.Position {
	t.Helper()
	ctx := context.Background()

	m := e.openMarket(ctx, "settlement test "+t.Name())
	positions := make([]domain.Position, 0, len(wagers))
	for _, w := range wagers {
		pos, err := e.wagers.PlaceWager(ctx, w.addr, m.ID, w.side, dec(w.amount))
		require.NoError(t, err)
		positions = append(positions, pos)
	}
	e.clock.Advance(2 * time.Hour)
	_, err := e.resolution.Resolve(ctx, auth.SystemCapability("test"), m.ID, outcome)
	require.NoError(t, err)
	return positions
}

func TestClaimPayoutExample(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "10000") // 500 YC
	e.fund(ctx, rivalAddr, "10000")

	// yesPool=300 (single stake), noPool=100.
	positions := settle(t, e, domain.OutcomeYes, []struct {
		addr   string
		side   domain.Side
		amount string
	}{
		{testAddr, domain.SideYes, "300"},
		{rivalAddr, domain.SideNo, "50"},
		{rivalAddr, domain.SideNo, "50"},
	})

	winner, err := e.claims.Claim(ctx, testAddr, positions[0].ID)
	require.NoError(t, err)
	assert.True(t, winner.Payout.Equal(dec("400")), "payout %s", winner.Payout)
	assert.True(t, winner.Won)
	assert.Equal(t, economy.XPPerWin, winner.XPEarned)

	loser, err := e.claims.Claim(ctx, rivalAddr, positions[1].ID)
	require.NoError(t, err)
	assert.True(t, loser.Payout.IsZero())
	assert.False(t, loser.Won)
	assert.Zero(t, loser.XPEarned)
}

func TestClaimBalanceConservation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "10000")
	positions := settle(t, e, domain.OutcomeYes, []struct {
		addr   string
		side   domain.Side
		amount string
	}{
		{testAddr, domain.SideYes, "100"},
	})

	before, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)

	res, err := e.claims.Claim(ctx, testAddr, positions[0].ID)
	require.NoError(t, err)

	after, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, after.YCBalance.Equal(before.YCBalance.Add(res.Payout)))
	assert.Equal(t, 1, after.Wins)
	assert.Equal(t, 0, after.Losses)
	assert.Equal(t, 1, after.StreakCount)
	assert.True(t, after.YCWon.Equal(res.Payout))
}

func TestClaimAtMostOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "10000")
	positions := settle(t, e, domain.OutcomeYes, []struct {
		addr   string
		side   domain.Side
		amount string
	}{
		{testAddr, domain.SideYes, "100"},
	})

	_, err := e.claims.Claim(ctx, testAddr, positions[0].ID)
	require.NoError(t, err)

	mid, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)

	_, err = e.claims.Claim(ctx, testAddr, positions[0].ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	after, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, after.YCBalance.Equal(mid.YCBalance), "second claim must not pay")
	assert.Equal(t, mid.Wins, after.Wins)
	assert.Equal(t, mid.XP, after.XP)
}

func TestClaimCancelRefunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "10000")
	positions := settle(t, e, domain.OutcomeCancel, []struct {
		addr   string
		side   domain.Side
		amount string
	}{
		{testAddr, domain.SideNo, "75"},
	})

	res, err := e.claims.Claim(ctx, testAddr, positions[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Payout.Equal(dec("75")))
	assert.False(t, res.Won)
	assert.Zero(t, res.XPEarned)

	u, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Wins)
	assert.Equal(t, 0, u.Losses)
	assert.Equal(t, 0, u.StreakCount, "cancel must not reset or grow the streak")
}

func TestClaimPreconditions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "10000")
	e.fund(ctx, rivalAddr, "10000")

	m := e.openMarket(ctx, "preconditions")
	pos, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideYes, dec("10"))
	require.NoError(t, err)

	// Not resolved yet.
	_, err = e.claims.Claim(ctx, testAddr, pos.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)

	// Wrong owner.
	_, err = e.claims.Claim(ctx, rivalAddr, pos.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Unknown position.
	_, err = e.claims.Claim(ctx, testAddr, "no-such-position")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimStreakBonusAndReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "100000")

	win := func() domain.ClaimResult {
		positions := settle(t, e, domain.OutcomeYes, []struct {
			addr   string
			side   domain.Side
			amount string
		}{
			{testAddr, domain.SideYes, "10"},
		})
		res, err := e.claims.Claim(ctx, testAddr, positions[0].ID)
		require.NoError(t, err)
		require.True(t, res.Won)
		return res
	}

	// First two wins: base XP only.
	assert.Equal(t, economy.XPPerWin, win().XPEarned)
	assert.Equal(t, economy.XPPerWin, win().XPEarned)

	// Third win: two recent wins behind it, bonus applies.
	assert.Equal(t, economy.XPPerWin+economy.XPStreakBonus, win().XPEarned)

	u, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, 3, u.StreakCount)

	// A definitive loss resets the streak to zero.
	positions := settle(t, e, domain.OutcomeNo, []struct {
		addr   string
		side   domain.Side
		amount string
	}{
		{testAddr, domain.SideYes, "10"},
	})
	res, err := e.claims.Claim(ctx, testAddr, positions[0].ID)
	require.NoError(t, err)
	require.False(t, res.Won)

	u, err = e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, u.StreakCount)
	assert.Equal(t, 1, u.Losses)
}

func TestClaimCompletesAcceptedQuest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "10000")

	q, err := e.quests.Import(ctx, testAddr, domain.QuestSuggestion{
		Question:   "Will the quest complete?",
		Difficulty: 2,
	})
	require.NoError(t, err)
	q, err = e.quests.Accept(ctx, testAddr, q.ID)
	require.NoError(t, err)
	require.NotNil(t, q.MarketID)

	pos, err := e.wagers.PlaceWager(ctx, testAddr, *q.MarketID, domain.SideYes, dec("10"))
	require.NoError(t, err)

	e.clock.Advance(3 * 24 * time.Hour)
	_, err = e.resolution.Resolve(ctx, auth.SystemCapability("test"), *q.MarketID, domain.OutcomeYes)
	require.NoError(t, err)

	_, err = e.claims.Claim(ctx, testAddr, pos.ID)
	require.NoError(t, err)

	quests, err := e.quests.List(ctx, testAddr, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, quests, 1)
	assert.True(t, quests[0].Completed)

	u, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, 1, u.CompletedQuests)
}
