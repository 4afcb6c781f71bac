package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a player in the economy, keyed by lowercase wallet address.
// Principal mirrors an external custody balance and is never wagered;
// YCBalance is the spendable yield-credit balance derived from it.
type User struct {
	Address     string // lowercase hex, unique
	DisplayName string

	YCBalance     decimal.Decimal
	Principal     decimal.Decimal
	LastAccrualAt time.Time

	TotalBets       int
	Wins            int
	Losses          int
	YCSpent         decimal.Decimal
	YCWon           decimal.Decimal
	StreakCount     int
	CompletedQuests int
	XP              int
	Level           int

	// Derived metrics, recomputed from the counters above. Cached here for
	// display and leaderboard sorting; the counters are authoritative.
	Accuracy        float64
	YieldEfficiency float64
	WisdomIndex     float64

	FirstDepositAt  *time.Time // set once, on the first observed principal increase
	FirstWithdrawAt *time.Time // set once, on the first observed principal decrease

	ShowOnLeaderboard bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser returns a fresh user record for the given normalized address.
func NewUser(address string, now time.Time) User {
	return User{
		Address:           address,
		YCBalance:         decimal.Zero,
		Principal:         decimal.Zero,
		YCSpent:           decimal.Zero,
		YCWon:             decimal.Zero,
		LastAccrualAt:     now,
		ShowOnLeaderboard: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// LeaderboardMetric selects the sort key for leaderboard queries.
type LeaderboardMetric string

const (
	MetricAccuracy LeaderboardMetric = "accuracy"
	MetricWisdom   LeaderboardMetric = "wisdom"
	MetricQuests   LeaderboardMetric = "quests"
)

// Valid reports whether the metric is one of the supported sort keys.
func (m LeaderboardMetric) Valid() bool {
	switch m {
	case MetricAccuracy, MetricWisdom, MetricQuests:
		return true
	}
	return false
}

// LeaderboardQuery describes a leaderboard page request.
type LeaderboardQuery struct {
	Metric LeaderboardMetric
	Search string // case-insensitive substring on address or display name
	Limit  int
	Offset int
}

// LeaderboardEntry is one ranked row of the leaderboard projection.
type LeaderboardEntry struct {
	Rank            int
	Address         string
	DisplayName     string
	Accuracy        float64
	WisdomIndex     float64
	TotalBets       int
	Wins            int
	StreakCount     int
	CompletedQuests int
	Level           int
}
