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

func TestResolveManual(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	m := e.openMarket(ctx, "manual resolve")
	resolved, err := e.resolution.Resolve(ctx, auth.SystemCapability("admin"), m.ID, domain.OutcomeNo)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.Outcome)
	assert.Equal(t, domain.OutcomeNo, *resolved.Outcome)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, e.clock.Now(), *resolved.ResolvedAt)
}

func TestResolveExactlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	m := e.openMarket(ctx, "resolve once")
	admin := auth.SystemCapability("admin")
	_, err := e.resolution.Resolve(ctx, admin, m.ID, domain.OutcomeYes)
	require.NoError(t, err)

	// A second resolution must not overwrite the first outcome.
	_, err = e.resolution.Resolve(ctx, admin, m.ID, domain.OutcomeNo)
	assert.ErrorIs(t, err, domain.ErrMarketResolved)

	got, err := e.markets.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeYes, *got.Outcome)
}

func TestResolveRequiresAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	m := e.openMarket(ctx, "admin only")
	_, err := e.resolution.Resolve(ctx, auth.Capability{Actor: testAddr}, m.ID, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = e.resolution.Resolve(ctx, auth.SystemCapability("admin"), m.ID, domain.Outcome("MAYBE"))
	assert.True(t, domain.IsValidation(err))
}

func TestSweepDueResolvesOnlyPastClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	due := e.openMarket(ctx, "closes soon")
	open := func() domain.Market {
		m, err := e.markets.Create(ctx, auth.SystemCapability("test"), CreateMarketParams{
			Question:   "closes much later",
			CloseTime:  e.clock.Now().Add(48 * time.Hour),
			Difficulty: 3,
		})
		if err != nil {
			panic(err)
		}
		return m
	}()

	e.clock.Advance(2 * time.Hour)
	n, err := e.resolution.SweepDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.markets.Get(ctx, due.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.Equal(t, domain.OutcomeYes, *got.Outcome) // env uses a fixed YES drawer

	got, err = e.markets.Get(ctx, open.ID)
	require.NoError(t, err)
	assert.False(t, got.Resolved, "sweep must not touch open markets")

	// Nothing left due: the sweep is idempotent.
	n, err = e.resolution.SweepDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepNeverDrawsCancel(t *testing.T) {
	t.Parallel()

	// CANCEL is reserved for manual resolution; both oracles only ever
	// draw YES or NO, whatever the pool shape.
	pools := []struct {
		yes, no string
	}{
		{"0", "0"},
		{"1000", "0"},
		{"0", "1000"},
		{"300", "100"},
	}
	drawers := []OutcomeDrawer{
		NewPoolWeightedDrawer(1),
		NewUniformDrawer(1),
	}
	for _, d := range drawers {
		for _, p := range pools {
			m := domain.Market{YesPool: dec(p.yes), NoPool: dec(p.no)}
			for i := 0; i < 200; i++ {
				outcome := d.Draw(m)
				require.Contains(t, []domain.Outcome{domain.OutcomeYes, domain.OutcomeNo}, outcome)
			}
		}
	}
}

func TestPoolWeightedDrawerFollowsPools(t *testing.T) {
	t.Parallel()

	draw := func(yes, no string) int {
		d := NewPoolWeightedDrawer(42)
		m := domain.Market{YesPool: dec(yes), NoPool: dec(no)}
		yesCount := 0
		for i := 0; i < 2000; i++ {
			if d.Draw(m) == domain.OutcomeYes {
				yesCount++
			}
		}
		return yesCount
	}

	// yesWeight w maps to P(YES) = 0.6w + 0.2, so a lopsided YES pool
	// lands near 80% and a lopsided NO pool near 20%.
	allYes := draw("1000", "0")
	assert.InDelta(t, 1600, allYes, 120)

	allNo := draw("0", "1000")
	assert.InDelta(t, 400, allNo, 120)

	empty := draw("0", "0")
	assert.InDelta(t, 1000, empty, 120)
}
