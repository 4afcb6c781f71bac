package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
)

func TestPlaceWagerMovesBalanceIntoPool(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "1000") // 50 YC after a year at 5%
	m := e.openMarket(ctx, "Will it rain tomorrow?")

	before, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)

	pos, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideYes, dec("20"))
	require.NoError(t, err)
	assert.Equal(t, m.ID, pos.MarketID)
	assert.Equal(t, domain.SideYes, pos.Side)
	assert.False(t, pos.Claimed)

	after, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, after.YCBalance.Equal(before.YCBalance.Sub(dec("20"))),
		"balance %s, want %s", after.YCBalance, before.YCBalance.Sub(dec("20")))
	assert.Equal(t, 1, after.TotalBets)
	assert.True(t, after.YCSpent.Equal(dec("20")))

	got, err := e.markets.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.YesPool.Equal(dec("20")))
	assert.True(t, got.NoPool.IsZero())
}

func TestPlaceWagerPoolConservation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	addrs := []string{
		"0x1111000000000000000000000000000000001111",
		"0x2222000000000000000000000000000000002222",
		"0x3333000000000000000000000000000000003333",
	}
	for _, a := range addrs {
		e.fund(ctx, a, "1000")
	}
	m := e.openMarket(ctx, "Does the pool balance?")

	stakes := []struct {
		addr   string
		side   domain.Side
		amount string
	}{
		{addrs[0], domain.SideYes, "10"},
		{addrs[1], domain.SideNo, "7.5"},
		{addrs[2], domain.SideYes, "12.25"},
		{addrs[0], domain.SideNo, "3"},
	}
	for _, st := range stakes {
		_, err := e.wagers.PlaceWager(ctx, st.addr, m.ID, st.side, dec(st.amount))
		require.NoError(t, err)
	}

	got, err := e.markets.Get(ctx, m.ID)
	require.NoError(t, err)

	positions, err := e.ledger.Positions().ListByMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, positions, len(stakes))

	sum := dec("0")
	for _, p := range positions {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, got.TotalPool().Equal(sum),
		"pools %s, positions sum %s", got.TotalPool(), sum)
	assert.True(t, got.YesPool.Equal(dec("22.25")))
	assert.True(t, got.NoPool.Equal(dec("10.5")))
}

func TestPlaceWagerPreconditionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "1000")
	m := e.openMarket(ctx, "Order of failure?")

	// Bad amount wins over bad side.
	_, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, "MAYBE", dec("0"))
	var ve domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	// Bad side wins over missing market.
	_, err = e.wagers.PlaceWager(ctx, testAddr, "no-such-market", "MAYBE", dec("5"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "side", ve.Field)

	// Missing market.
	_, err = e.wagers.PlaceWager(ctx, testAddr, "no-such-market", domain.SideYes, dec("5"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceWagerClosedAndResolvedMarkets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "1000")
	m := e.openMarket(ctx, "Too late?")

	e.clock.Advance(2 * time.Hour) // past closeTime
	_, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideYes, dec("5"))
	assert.ErrorIs(t, err, domain.ErrMarketClosed)

	_, err = e.resolution.Resolve(ctx, auth.SystemCapability("test"), m.ID, domain.OutcomeYes)
	require.NoError(t, err)
	_, err = e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideYes, dec("5"))
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
}

func TestPlaceWagerInsufficientBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "100") // 5 YC
	m := e.openMarket(ctx, "Too rich for you?")

	_, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideYes, dec("6"))
	var ib domain.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.True(t, ib.Required.Equal(dec("6")))
	assert.True(t, ib.Balance.Equal(dec("5")))

	// Nothing moved.
	got, err := e.markets.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalPool().IsZero())
	u, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, u.TotalBets)
	assert.True(t, u.YCBalance.Equal(dec("5")))
}

func TestPlaceWagerRefreshesAccrualFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	// 5 YC accrued via fund; another year accrues 5 more inside the wager
	// itself, making a 7 YC stake affordable.
	e.fund(ctx, testAddr, "100")
	e.clock.Advance(365 * 24 * time.Hour)
	m := e.openMarket(ctx, "Accrue on demand?")

	_, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideYes, dec("7"))
	require.NoError(t, err)

	u, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, u.YCBalance.Equal(dec("3")), "balance %s", u.YCBalance)
}

func TestPlaceWagerAwardsFirstBlood(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	e.fund(ctx, testAddr, "1000")
	m := e.openMarket(ctx, "First ever bet?")

	_, err := e.wagers.PlaceWager(ctx, testAddr, m.ID, domain.SideNo, dec("1"))
	require.NoError(t, err)

	achievements, err := e.rules.ListAchievements(ctx, testAddr)
	require.NoError(t, err)
	types := make([]domain.AchievementType, 0, len(achievements))
	for _, a := range achievements {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, domain.AchievementFirstBlood)
}
