package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yieldplay/yieldplay/internal/domain"
)

func TestAccuracyPct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, AccuracyPct(0, 0))
	assert.Equal(t, 50.0, AccuracyPct(5, 10))
	assert.Equal(t, 100.0, AccuracyPct(3, 3))
}

func TestYieldEfficiencyPct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, YieldEfficiencyPct(dec("10"), dec("0")))
	assert.InDelta(t, 40.0, YieldEfficiencyPct(dec("140"), dec("100")), 1e-9)
	assert.InDelta(t, -100.0, YieldEfficiencyPct(dec("0"), dec("50")), 1e-9)
}

func TestWisdomIndex(t *testing.T) {
	t.Parallel()

	// 80*0.5 + 40*0.3 + min(50,100)*0.2 = 40 + 12 + 10.
	assert.InDelta(t, 62.0, WisdomIndex(80, 40, 5), 1e-9)

	// Streak component caps at 100.
	assert.InDelta(t, 20.0, WisdomIndex(0, 0, 25), 1e-9)
}

func TestLevelForXP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		xp   int
		want int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{399, 1},
		{400, 2},
		{900, 3},
		{899, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestRefreshDerived(t *testing.T) {
	t.Parallel()

	u := domain.User{
		Wins:        8,
		TotalBets:   10,
		YCWon:       dec("140"),
		YCSpent:     dec("100"),
		StreakCount: 5,
		XP:          450,
	}
	RefreshDerived(&u)

	assert.InDelta(t, 80.0, u.Accuracy, 1e-9)
	assert.InDelta(t, 40.0, u.YieldEfficiency, 1e-9)
	assert.InDelta(t, 62.0, u.WisdomIndex, 1e-9)
	assert.Equal(t, 2, u.Level)
}
