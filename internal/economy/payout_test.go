package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
)

func resolvedMarket(yes, no string, outcome domain.Outcome) domain.Market {
	return domain.Market{
		YesPool:  dec(yes),
		NoPool:   dec(no),
		Resolved: true,
		Outcome:  &outcome,
	}
}

func TestExpectedPayout(t *testing.T) {
	t.Parallel()

	// 50 into an empty market: the wager is priced as if already pooled, so
	// the quote is exactly the stake back.
	got := ExpectedPayout(dec("50"), dec("0"), dec("0"))
	assert.True(t, got.Equal(dec("50")), "empty pool quote = %s", got)

	// 100 on YES with yes=300, no=100: 100 * (400+100) / (300+100) = 125.
	got = ExpectedPayout(dec("100"), dec("300"), dec("400"))
	assert.True(t, got.Equal(dec("125")), "quote = %s", got)

	assert.True(t, ExpectedPayout(dec("0"), dec("10"), dec("20")).IsZero())
}

func TestSettlePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		side       domain.Side
		amount     string
		market     domain.Market
		wantPayout string
		wantWon    bool
	}{
		{
			name:       "losing NO stake pays zero",
			side:       domain.SideNo,
			amount:     "50",
			market:     resolvedMarket("300", "100", domain.OutcomeYes),
			wantPayout: "0",
			wantWon:    false,
		},
		{
			name:       "sole YES stake collects whole pot",
			side:       domain.SideYes,
			amount:     "300",
			market:     resolvedMarket("300", "100", domain.OutcomeYes),
			wantPayout: "400",
			wantWon:    true,
		},
		{
			name:       "split winning pool pays pro rata",
			side:       domain.SideYes,
			amount:     "100",
			market:     resolvedMarket("200", "200", domain.OutcomeYes),
			wantPayout: "200",
			wantWon:    true,
		},
		{
			name:       "cancel refunds the stake",
			side:       domain.SideNo,
			amount:     "75",
			market:     resolvedMarket("300", "100", domain.OutcomeCancel),
			wantPayout: "75",
			wantWon:    false,
		},
		{
			name:       "degenerate empty winning pool refunds",
			side:       domain.SideYes,
			amount:     "10",
			market:     resolvedMarket("0", "40", domain.OutcomeYes),
			wantPayout: "10",
			wantWon:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pos := domain.Position{Side: tt.side, Amount: dec(tt.amount)}
			payout, won := SettlePosition(pos, tt.market)
			assert.True(t, payout.Equal(dec(tt.wantPayout)),
				"payout = %s, want %s", payout, tt.wantPayout)
			assert.Equal(t, tt.wantWon, won)
		})
	}
}

func TestSettlePositionUnresolved(t *testing.T) {
	t.Parallel()

	pos := domain.Position{Side: domain.SideYes, Amount: dec("10")}
	payout, won := SettlePosition(pos, domain.Market{YesPool: dec("10")})
	require.True(t, payout.IsZero())
	require.False(t, won)
}
