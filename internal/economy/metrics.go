package economy

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// XP awards applied by the claim flow.
const (
	XPPerWin      = 20
	XPStreakBonus = 50
)

// AccuracyPct returns wins / totalBets * 100, or 0 when the user has no bets.
func AccuracyPct(wins, totalBets int) float64 {
	if totalBets <= 0 {
		return 0
	}
	return float64(wins) / float64(totalBets) * 100
}

// YieldEfficiencyPct returns (ycWon - ycSpent) / ycSpent * 100, or 0 when
// nothing has been spent.
func YieldEfficiencyPct(ycWon, ycSpent decimal.Decimal) float64 {
	if ycSpent.Sign() <= 0 {
		return 0
	}
	eff, _ := ycWon.Sub(ycSpent).Div(ycSpent).Float64()
	return eff * 100
}

// WisdomIndex blends accuracy, yield efficiency, and streak performance:
// accuracy*0.5 + yieldEfficiency*0.3 + min(streak*10, 100)*0.2.
func WisdomIndex(accuracy, yieldEfficiency float64, streak int) float64 {
	streakScore := math.Min(float64(streak)*10, 100)
	return accuracy*0.5 + yieldEfficiency*0.3 + streakScore*0.2
}

// LevelForXP returns floor(sqrt(xp/100)); level n requires n^2 * 100 XP.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(xp) / 100))
}

// RefreshDerived recomputes every cached derived metric on the user from its
// authoritative counters.
func RefreshDerived(u *domain.User) {
	u.Accuracy = AccuracyPct(u.Wins, u.TotalBets)
	u.YieldEfficiency = YieldEfficiencyPct(u.YCWon, u.YCSpent)
	u.WisdomIndex = WisdomIndex(u.Accuracy, u.YieldEfficiency, u.StreakCount)
	u.Level = LevelForXP(u.XP)
}
