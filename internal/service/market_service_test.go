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

func TestCreateMarketValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()
	admin := auth.SystemCapability("admin")

	cases := []struct {
		name string
		p    CreateMarketParams
	}{
		{"empty question", CreateMarketParams{Question: "  ", CloseTime: e.clock.Now().Add(time.Hour), Difficulty: 3}},
		{"close in the past", CreateMarketParams{Question: "q", CloseTime: e.clock.Now().Add(-time.Hour), Difficulty: 3}},
		{"difficulty too low", CreateMarketParams{Question: "q", CloseTime: e.clock.Now().Add(time.Hour), Difficulty: 0}},
		{"difficulty too high", CreateMarketParams{Question: "q", CloseTime: e.clock.Now().Add(time.Hour), Difficulty: 6}},
		{"negative seed", CreateMarketParams{Question: "q", CloseTime: e.clock.Now().Add(time.Hour), Difficulty: 3, SeedYes: dec("-1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.markets.Create(ctx, admin, tc.p)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	_, err := e.markets.Create(ctx, auth.Capability{Actor: testAddr}, CreateMarketParams{
		Question: "q", CloseTime: e.clock.Now().Add(time.Hour), Difficulty: 3,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestQuoteMatchesPoolMath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	m, err := e.markets.Create(ctx, auth.SystemCapability("admin"), CreateMarketParams{
		Question:   "seeded quote",
		CloseTime:  e.clock.Now().Add(time.Hour),
		Difficulty: 3,
		SeedYes:    dec("300"),
		SeedNo:     dec("100"),
	})
	require.NoError(t, err)

	// 100 on YES: 100 * (400+100) / (300+100) = 125.
	q, err := e.markets.Quote(ctx, m.ID, domain.SideYes, dec("100"))
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("125")), "quote %s", q)

	// Quoting writes nothing.
	got, err := e.markets.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.YesPool.Equal(dec("300")))
	assert.True(t, got.NoPool.Equal(dec("100")))

	_, err = e.markets.Quote(ctx, m.ID, domain.SideYes, dec("0"))
	assert.True(t, domain.IsValidation(err))
	_, err = e.markets.Quote(ctx, m.ID, domain.Side("MAYBE"), dec("1"))
	assert.True(t, domain.IsValidation(err))
	_, err = e.markets.Quote(ctx, "missing", domain.SideYes, dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMarketsFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	open := e.openMarket(ctx, "still open")
	closed := e.openMarket(ctx, "already resolved")
	_, err := e.resolution.Resolve(ctx, auth.SystemCapability("admin"), closed.ID, domain.OutcomeNo)
	require.NoError(t, err)

	resolved, err := e.markets.List(ctx, domain.MarketFilter{ResolvedOnly: true}, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, closed.ID, resolved[0].ID)

	found, err := e.markets.List(ctx, domain.MarketFilter{Search: "still"}, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, open.ID, found[0].ID)
}
