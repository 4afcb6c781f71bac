package handler

import (
	"time"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/platform/chain"
)

// Wire representations. Domain entities stay free of transport tags, so each
// handler maps to these DTOs instead of serializing domain structs directly.
// Monetary fields are rendered as decimal strings; addresses are rendered in
// EIP-55 checksum form.

type marketJSON struct {
	ID         string  `json:"id"`
	Question   string  `json:"question"`
	CloseTime  string  `json:"closeTime"`
	Difficulty int     `json:"difficulty"`
	YesPool    string  `json:"yesPool"`
	NoPool     string  `json:"noPool"`
	TotalPool  string  `json:"totalPool"`
	Resolved   bool    `json:"resolved"`
	Outcome    *string `json:"outcome,omitempty"`
	ResolvedAt *string `json:"resolvedAt,omitempty"`
	CreatedBy  string  `json:"createdBy"`
	CreatedAt  string  `json:"createdAt"`
}

func renderMarket(m domain.Market) marketJSON {
	out := marketJSON{
		ID:         m.ID,
		Question:   m.Question,
		CloseTime:  m.CloseTime.UTC().Format(time.RFC3339),
		Difficulty: m.Difficulty,
		YesPool:    m.YesPool.String(),
		NoPool:     m.NoPool.String(),
		TotalPool:  m.TotalPool().String(),
		Resolved:   m.Resolved,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.Outcome != nil {
		s := string(*m.Outcome)
		out.Outcome = &s
	}
	out.ResolvedAt = renderTimePtr(m.ResolvedAt)
	return out
}

func renderMarkets(ms []domain.Market) []marketJSON {
	out := make([]marketJSON, 0, len(ms))
	for _, m := range ms {
		out = append(out, renderMarket(m))
	}
	return out
}

type userJSON struct {
	Address         string  `json:"address"`
	DisplayName     string  `json:"displayName,omitempty"`
	YCBalance       string  `json:"ycBalance"`
	Principal       string  `json:"principal"`
	LastAccrualAt   string  `json:"lastAccrualAt"`
	TotalBets       int     `json:"totalBets"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	YCSpent         string  `json:"ycSpent"`
	YCWon           string  `json:"ycWon"`
	StreakCount     int     `json:"streakCount"`
	CompletedQuests int     `json:"completedQuests"`
	XP              int     `json:"xp"`
	Level           int     `json:"level"`
	Accuracy        float64 `json:"accuracy"`
	YieldEfficiency float64 `json:"yieldEfficiency"`
	WisdomIndex     float64 `json:"wisdomIndex"`
	FirstDepositAt  *string `json:"firstDepositAt,omitempty"`
	FirstWithdrawAt *string `json:"firstWithdrawAt,omitempty"`
}

func renderUser(u domain.User) userJSON {
	return userJSON{
		Address:         chain.ChecksumAddress(u.Address),
		DisplayName:     u.DisplayName,
		YCBalance:       u.YCBalance.String(),
		Principal:       u.Principal.String(),
		LastAccrualAt:   u.LastAccrualAt.UTC().Format(time.RFC3339),
		TotalBets:       u.TotalBets,
		Wins:            u.Wins,
		Losses:          u.Losses,
		YCSpent:         u.YCSpent.String(),
		YCWon:           u.YCWon.String(),
		StreakCount:     u.StreakCount,
		CompletedQuests: u.CompletedQuests,
		XP:              u.XP,
		Level:           u.Level,
		Accuracy:        u.Accuracy,
		YieldEfficiency: u.YieldEfficiency,
		WisdomIndex:     u.WisdomIndex,
		FirstDepositAt:  renderTimePtr(u.FirstDepositAt),
		FirstWithdrawAt: renderTimePtr(u.FirstWithdrawAt),
	}
}

type positionJSON struct {
	ID        string  `json:"id"`
	MarketID  string  `json:"marketId"`
	Address   string  `json:"address"`
	Side      string  `json:"side"`
	Amount    string  `json:"amount"`
	Claimed   bool    `json:"claimed"`
	Payout    string  `json:"payout"`
	Won       *bool   `json:"won,omitempty"`
	PlacedAt  string  `json:"placedAt"`
	ClaimedAt *string `json:"claimedAt,omitempty"`
}

func renderPosition(p domain.Position) positionJSON {
	return positionJSON{
		ID:        p.ID,
		MarketID:  p.MarketID,
		Address:   chain.ChecksumAddress(p.Address),
		Side:      string(p.Side),
		Amount:    p.Amount.String(),
		Claimed:   p.Claimed,
		Payout:    p.Payout.String(),
		Won:       p.Won,
		PlacedAt:  p.PlacedAt.UTC().Format(time.RFC3339),
		ClaimedAt: renderTimePtr(p.ClaimedAt),
	}
}

func renderPositions(ps []domain.Position) []positionJSON {
	out := make([]positionJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, renderPosition(p))
	}
	return out
}

type questJSON struct {
	ID              string  `json:"id"`
	Address         string  `json:"address"`
	Question        string  `json:"question"`
	SuggestedStake  string  `json:"suggestedStake"`
	Difficulty      int     `json:"difficulty"`
	LearningOutcome string  `json:"learningOutcome"`
	MarketID        *string `json:"marketId,omitempty"`
	Accepted        bool    `json:"accepted"`
	Completed       bool    `json:"completed"`
	CreatedAt       string  `json:"createdAt"`
	AcceptedAt      *string `json:"acceptedAt,omitempty"`
	CompletedAt     *string `json:"completedAt,omitempty"`
}

func renderQuest(q domain.Quest) questJSON {
	return questJSON{
		ID:              q.ID,
		Address:         chain.ChecksumAddress(q.Address),
		Question:        q.Question,
		SuggestedStake:  q.SuggestedStake.String(),
		Difficulty:      q.Difficulty,
		LearningOutcome: q.LearningOutcome,
		MarketID:        q.MarketID,
		Accepted:        q.Accepted,
		Completed:       q.Completed,
		CreatedAt:       q.CreatedAt.UTC().Format(time.RFC3339),
		AcceptedAt:      renderTimePtr(q.AcceptedAt),
		CompletedAt:     renderTimePtr(q.CompletedAt),
	}
}

func renderQuests(qs []domain.Quest) []questJSON {
	out := make([]questJSON, 0, len(qs))
	for _, q := range qs {
		out = append(out, renderQuest(q))
	}
	return out
}

type achievementJSON struct {
	Type     string `json:"type"`
	EarnedAt string `json:"earnedAt"`
}

func renderAchievements(as []domain.Achievement) []achievementJSON {
	out := make([]achievementJSON, 0, len(as))
	for _, a := range as {
		out = append(out, achievementJSON{
			Type:     string(a.Type),
			EarnedAt: a.EarnedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

type leaderboardEntryJSON struct {
	Rank            int     `json:"rank"`
	Address         string  `json:"address"`
	DisplayName     string  `json:"displayName,omitempty"`
	Accuracy        float64 `json:"accuracy"`
	WisdomIndex     float64 `json:"wisdomIndex"`
	TotalBets       int     `json:"totalBets"`
	Wins            int     `json:"wins"`
	StreakCount     int     `json:"streakCount"`
	CompletedQuests int     `json:"completedQuests"`
	Level           int     `json:"level"`
}

func renderLeaderboard(entries []domain.LeaderboardEntry) []leaderboardEntryJSON {
	out := make([]leaderboardEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryJSON{
			Rank:            e.Rank,
			Address:         chain.ChecksumAddress(e.Address),
			DisplayName:     e.DisplayName,
			Accuracy:        e.Accuracy,
			WisdomIndex:     e.WisdomIndex,
			TotalBets:       e.TotalBets,
			Wins:            e.Wins,
			StreakCount:     e.StreakCount,
			CompletedQuests: e.CompletedQuests,
			Level:           e.Level,
		})
	}
	return out
}

func renderTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
