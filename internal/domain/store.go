package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// Tx is the transactional view of the ledger used by one atomic operation.
// ForUpdate reads lock the row for the duration of the transaction; every
// write inside the same Tx commits or rolls back as a single unit.
type Tx interface {
	GetUserForUpdate(ctx context.Context, address string) (User, error)
	CreateUser(ctx context.Context, u User) error
	PutUser(ctx context.Context, u User) error

	GetMarketForUpdate(ctx context.Context, id string) (Market, error)
	CreateMarket(ctx context.Context, m Market) error
	PutMarket(ctx context.Context, m Market) error
	// FindOpenMarketByQuestion returns the newest unresolved market with
	// exactly this question text, or ErrNotFound.
	FindOpenMarketByQuestion(ctx context.Context, question string, now time.Time) (Market, error)

	GetPositionForUpdate(ctx context.Context, id string) (Position, error)
	CreatePosition(ctx context.Context, p Position) error
	PutPosition(ctx context.Context, p Position) error
	// ListRecentClaimed returns the user's most recently claimed positions,
	// newest first, excluding unclaimed ones.
	ListRecentClaimed(ctx context.Context, address string, limit int) ([]Position, error)

	GetQuestForUpdate(ctx context.Context, id string) (Quest, error)
	CreateQuest(ctx context.Context, q Quest) error
	PutQuest(ctx context.Context, q Quest) error
	// ListOpenQuestsByMarket returns accepted, uncompleted quests linked to
	// the market for the given user.
	ListOpenQuestsByMarket(ctx context.Context, address, marketID string) ([]Quest, error)

	// EarnAchievement inserts the (user, type) pair. It returns false with a
	// nil error when the pair already exists, which makes awards idempotent.
	EarnAchievement(ctx context.Context, a Achievement) (bool, error)
	ListAchievements(ctx context.Context, address string) ([]Achievement, error)
}

// TxRunner executes fn inside one serializable ledger transaction. A fn error
// rolls the transaction back and is returned unchanged. Implementations retry
// a bounded number of times on write conflicts before surfacing
// ErrTransientConflict.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserStore provides read access to users outside of a transaction.
type UserStore interface {
	Get(ctx context.Context, address string) (User, error)
	Leaderboard(ctx context.Context, q LeaderboardQuery) ([]User, error)
	// ListForAccrual returns addresses of users holding principal whose
	// last accrual is older than cutoff, oldest first.
	ListForAccrual(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// MarketStore provides read access to markets outside of a transaction.
type MarketStore interface {
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, f MarketFilter, opts ListOpts) ([]Market, error)
	// ListDue returns unresolved markets whose close time has passed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PositionStore provides read access to positions outside of a transaction.
type PositionStore interface {
	GetByID(ctx context.Context, id string) (Position, error)
	ListByMarket(ctx context.Context, marketID string) ([]Position, error)
	ListByUser(ctx context.Context, address string, opts ListOpts) ([]Position, error)
}

// QuestStore provides read access to quests outside of a transaction.
type QuestStore interface {
	GetByID(ctx context.Context, id string) (Quest, error)
	ListByUser(ctx context.Context, address string, opts ListOpts) ([]Quest, error)
}

// AchievementStore provides read access to earned achievements.
type AchievementStore interface {
	ListByUser(ctx context.Context, address string) ([]Achievement, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of economy events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Ledger bundles the full persistence surface of the economy engine.
type Ledger interface {
	TxRunner
	Users() UserStore
	Markets() MarketStore
	Positions() PositionStore
	Quests() QuestStore
	Achievements() AchievementStore
}
