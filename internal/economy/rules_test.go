package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yieldplay/yieldplay/internal/domain"
)

func TestEligibleAchievements(t *testing.T) {
	t.Parallel()

	deposit := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	withdraw := deposit.Add(8 * 24 * time.Hour)

	u := domain.User{
		TotalBets:       20,
		Wins:            16,
		Accuracy:        80,
		StreakCount:     4,
		CompletedQuests: 5,
		Principal:       dec("1.5"),
		FirstDepositAt:  &deposit,
		FirstWithdrawAt: &withdraw,
	}

	got := EligibleAchievements(u, nil)
	assert.Equal(t, []domain.AchievementType{
		domain.AchievementFirstBlood,
		domain.AchievementHatTrick,
		domain.AchievementSharpshooter,
		domain.AchievementQuestMaster,
		domain.AchievementDiamondHands,
		domain.AchievementWhale,
		domain.AchievementOracle,
	}, got)
}

func TestEligibleAchievementsSkipsEarned(t *testing.T) {
	t.Parallel()

	u := domain.User{TotalBets: 1}
	earned := map[domain.AchievementType]bool{domain.AchievementFirstBlood: true}
	assert.Empty(t, EligibleAchievements(u, earned))
}

func TestEligibleAchievementsBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user domain.User
		want []domain.AchievementType
	}{
		{
			name: "fresh user earns nothing",
			user: domain.User{},
			want: nil,
		},
		{
			name: "accuracy exactly 60 is not sharpshooter",
			user: domain.User{TotalBets: 10, Accuracy: 60},
			want: []domain.AchievementType{domain.AchievementFirstBlood},
		},
		{
			name: "whale at exactly 1.0 principal",
			user: domain.User{Principal: dec("1.0")},
			want: []domain.AchievementType{domain.AchievementWhale},
		},
		{
			name: "oracle needs 20 bets",
			user: domain.User{TotalBets: 19, Accuracy: 90},
			want: []domain.AchievementType{
				domain.AchievementFirstBlood,
				domain.AchievementSharpshooter,
			},
		},
		{
			name: "short hold is not diamond hands",
			user: func() domain.User {
				d := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
				w := d.Add(6 * 24 * time.Hour)
				return domain.User{FirstDepositAt: &d, FirstWithdrawAt: &w}
			}(),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EligibleAchievements(tt.user, nil))
		})
	}
}
