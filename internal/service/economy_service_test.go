package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
)

func TestAccrueSimpleInterest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("2.0"))
	require.NoError(t, err)

	e.clock.Advance(31536 * time.Second)
	res, err := e.economy.Accrue(ctx, testAddr)
	require.NoError(t, err)
	// 2.0 * 0.05 * 31536/31536000 = 0.0001
	assert.True(t, res.Delta.Equal(dec("0.0001")), "delta %s", res.Delta)
	assert.True(t, res.NewBalance.Equal(dec("0.0001")))
}

func TestAccrueIsAdditiveOverSplits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	whole := newEnv()
	split := newEnv()
	for _, e := range []*env{whole, split} {
		_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("500"))
		require.NoError(t, err)
	}

	// Ten tenth-of-a-year segments against one whole year.
	const segment = 876 * time.Hour
	whole.clock.Advance(10 * segment)
	wres, err := whole.economy.Accrue(ctx, testAddr)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		split.clock.Advance(segment)
		_, err := split.economy.Accrue(ctx, testAddr)
		require.NoError(t, err)
	}
	su, err := split.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)

	assert.True(t, su.YCBalance.Equal(wres.NewBalance),
		"split %s vs whole %s", su.YCBalance, wres.NewBalance)
}

func TestAccrueZeroElapsedIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("1000"))
	require.NoError(t, err)

	res, err := e.economy.Accrue(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, res.Delta.IsZero())

	// Accruing again at the same instant stays a no-op.
	res, err = e.economy.Accrue(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, res.Delta.IsZero())
	assert.True(t, res.NewBalance.IsZero())
}

func TestObservePrincipalStampsFirstMoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	start := e.clock.Now()
	u, err := e.economy.ObservePrincipal(ctx, testAddr, dec("100"))
	require.NoError(t, err)
	require.NotNil(t, u.FirstDepositAt)
	assert.Equal(t, start, *u.FirstDepositAt)
	assert.Nil(t, u.FirstWithdrawAt)

	// Growing the principal again does not move the deposit stamp.
	e.clock.Advance(time.Hour)
	u, err = e.economy.ObservePrincipal(ctx, testAddr, dec("200"))
	require.NoError(t, err)
	assert.Equal(t, start, *u.FirstDepositAt)
	assert.Nil(t, u.FirstWithdrawAt)

	// First shrink stamps the withdraw side, once.
	e.clock.Advance(time.Hour)
	withdrawAt := e.clock.Now()
	u, err = e.economy.ObservePrincipal(ctx, testAddr, dec("150"))
	require.NoError(t, err)
	require.NotNil(t, u.FirstWithdrawAt)
	assert.Equal(t, withdrawAt, *u.FirstWithdrawAt)

	e.clock.Advance(time.Hour)
	u, err = e.economy.ObservePrincipal(ctx, testAddr, dec("50"))
	require.NoError(t, err)
	assert.Equal(t, withdrawAt, *u.FirstWithdrawAt)
}

func TestObservePrincipalAccruesOnOldPrincipal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("1000"))
	require.NoError(t, err)

	// A year at 5% on the old principal lands before the change applies.
	e.clock.Advance(365 * 24 * time.Hour)
	u, err := e.economy.ObservePrincipal(ctx, testAddr, dec("0"))
	require.NoError(t, err)
	assert.True(t, u.YCBalance.Equal(dec("50")), "balance %s", u.YCBalance)
	assert.True(t, u.Principal.IsZero())
}

func TestObservePrincipalRejectsNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("-1"))
	assert.True(t, domain.IsValidation(err))
}

func TestObservePrincipalAwardsWhale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("0.5"))
	require.NoError(t, err)
	got, err := e.rules.ListAchievements(ctx, testAddr)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = e.economy.ObservePrincipal(ctx, testAddr, dec("1.0"))
	require.NoError(t, err)
	got, err = e.rules.ListAchievements(ctx, testAddr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.AchievementWhale, got[0].Type)
}

func TestGetUserUnknownAddress(t *testing.T) {
	t.Parallel()
	e := newEnv()
	_, err := e.economy.GetUser(context.Background(), "0xdead000000000000000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccrueSweepCoversIdleHolders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	// Two holders with principal, one user without any.
	_, err := e.economy.ObservePrincipal(ctx, testAddr, dec("1000"))
	require.NoError(t, err)
	_, err = e.economy.ObservePrincipal(ctx, rivalAddr, dec("500"))
	require.NoError(t, err)
	_, err = e.economy.ObservePrincipal(ctx, "0xcccc00000000000000000000000000000000cccc", dec("0"))
	require.NoError(t, err)

	e.clock.Advance(365 * 24 * time.Hour)
	n, err := e.economy.AccrueSweep(ctx, time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u, err := e.economy.GetUser(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, u.YCBalance.Equal(dec("50")), "balance %s", u.YCBalance)

	// A second immediate sweep finds nothing older than the window.
	n, err = e.economy.AccrueSweep(ctx, time.Minute, 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}
