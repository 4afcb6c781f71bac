package economy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// diamondHandsHold is the minimum time between first deposit and first
// withdrawal for DIAMOND_HANDS.
const diamondHandsHold = 7 * 24 * time.Hour

var whaleThreshold = decimal.NewFromInt(1)

// achievementRules maps each type to its condition over the user's current
// stats. Conditions are pure; idempotency comes from the unique (user, type)
// constraint at award time.
var achievementRules = map[domain.AchievementType]func(domain.User) bool{
	domain.AchievementFirstBlood: func(u domain.User) bool {
		return u.TotalBets >= 1
	},
	domain.AchievementHatTrick: func(u domain.User) bool {
		return u.StreakCount >= 3
	},
	domain.AchievementSharpshooter: func(u domain.User) bool {
		return u.TotalBets >= 10 && u.Accuracy > 60
	},
	domain.AchievementQuestMaster: func(u domain.User) bool {
		return u.CompletedQuests >= 5
	},
	domain.AchievementDiamondHands: func(u domain.User) bool {
		if u.FirstDepositAt == nil || u.FirstWithdrawAt == nil {
			return false
		}
		return u.FirstWithdrawAt.Sub(*u.FirstDepositAt) >= diamondHandsHold
	},
	domain.AchievementWhale: func(u domain.User) bool {
		return u.Principal.Cmp(whaleThreshold) >= 0
	},
	domain.AchievementOracle: func(u domain.User) bool {
		return u.TotalBets >= 20 && u.Accuracy > 75
	},
}

// EligibleAchievements returns the types whose conditions hold for the user
// and that are not in the already-earned set, in table order.
func EligibleAchievements(u domain.User, earned map[domain.AchievementType]bool) []domain.AchievementType {
	var out []domain.AchievementType
	for _, t := range domain.AchievementTypes {
		if earned[t] {
			continue
		}
		if achievementRules[t](u) {
			out = append(out, t)
		}
	}
	return out
}
