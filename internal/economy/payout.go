package economy

import (
	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// ExpectedPayout quotes what a wager of amount on the given side would pay if
// that side won, pricing the wager as if it were already in both pools:
//
//	amount * (totalPool + amount) / (sidePool + amount)
//
// Including the wager in the denominator avoids divide-by-zero on an empty
// pool and matches the shape of the settlement formula.
func ExpectedPayout(amount, sidePool, totalPool decimal.Decimal) decimal.Decimal {
	if amount.Sign() <= 0 {
		return decimal.Zero
	}
	return amount.Mul(totalPool.Add(amount)).Div(sidePool.Add(amount))
}

// SettlePosition computes the pari-mutuel payout for a position on a resolved
// market. CANCEL refunds the stake; a win pays amount * totalPool /
// winningPool; a loss pays zero. The degenerate empty-winning-pool case
// refunds the stake, though it cannot occur when the position itself
// contributed to that pool.
func SettlePosition(pos domain.Position, m domain.Market) (payout decimal.Decimal, won bool) {
	if m.Outcome == nil {
		return decimal.Zero, false
	}
	switch *m.Outcome {
	case domain.OutcomeCancel:
		return pos.Amount, false
	case domain.Outcome(pos.Side):
		winningPool := m.SidePool(pos.Side)
		if winningPool.Sign() > 0 {
			return pos.Amount.Mul(m.TotalPool()).Div(winningPool), true
		}
		return pos.Amount, true
	default:
		return decimal.Zero, false
	}
}
