package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// txMaxAttempts bounds retries of a ledger transaction on serialization
// failures and deadlocks before surfacing ErrTransientConflict.
const txMaxAttempts = 3

// Ledger implements domain.Ledger on a pgx connection pool. Every WithTx
// call runs as one database transaction; ForUpdate reads take row locks so
// concurrent wagers, claims, and resolutions serialize per row.
type Ledger struct {
	pool *pgxpool.Pool

	users        *UserStore
	markets      *MarketStore
	positions    *PositionStore
	quests       *QuestStore
	achievements *AchievementStore
}

// NewLedger creates a Ledger and its read stores on the client's pool.
func NewLedger(c *Client) *Ledger {
	pool := c.Pool()
	return &Ledger{
		pool:         pool,
		users:        NewUserStore(pool),
		markets:      NewMarketStore(pool),
		positions:    NewPositionStore(pool),
		quests:       NewQuestStore(pool),
		achievements: NewAchievementStore(pool),
	}
}

// Users returns the read-only user store.
func (l *Ledger) Users() domain.UserStore { return l.users }

// Markets returns the read-only market store.
func (l *Ledger) Markets() domain.MarketStore { return l.markets }

// Positions returns the read-only position store.
func (l *Ledger) Positions() domain.PositionStore { return l.positions }

// Quests returns the read-only quest store.
func (l *Ledger) Quests() domain.QuestStore { return l.quests }

// Achievements returns the read-only achievement store.
func (l *Ledger) Achievements() domain.AchievementStore { return l.achievements }

// WithTx runs fn inside one transaction, retrying on serialization failures
// (40001) and deadlocks (40P01) up to txMaxAttempts before reporting
// ErrTransientConflict. Domain errors from fn roll back and pass through
// unchanged.
func (l *Ledger) WithTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		err := l.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 25 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrTransientConflict, lastErr)
}

func (l *Ledger) runOnce(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgtx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(&ledgerTx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// ledgerTx implements domain.Tx on one open pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

const userCols = `address, display_name, yc_balance, principal, yc_spent, yc_won,
	last_accrual_at, total_bets, wins, losses, streak_count, completed_quests,
	xp, level, accuracy, yield_efficiency, wisdom_index,
	first_deposit_at, first_withdraw_at, show_on_leaderboard,
	created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.Address, &u.DisplayName, &u.YCBalance, &u.Principal, &u.YCSpent, &u.YCWon,
		&u.LastAccrualAt, &u.TotalBets, &u.Wins, &u.Losses, &u.StreakCount, &u.CompletedQuests,
		&u.XP, &u.Level, &u.Accuracy, &u.YieldEfficiency, &u.WisdomIndex,
		&u.FirstDepositAt, &u.FirstWithdrawAt, &u.ShowOnLeaderboard,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (t *ledgerTx) GetUserForUpdate(ctx context.Context, address string) (domain.User, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE address = $1 FOR UPDATE`, address)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %s for update: %w", address, err)
	}
	return u, nil
}

func (t *ledgerTx) CreateUser(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (
			address, display_name, yc_balance, principal, yc_spent, yc_won,
			last_accrual_at, total_bets, wins, losses, streak_count, completed_quests,
			xp, level, accuracy, yield_efficiency, wisdom_index,
			first_deposit_at, first_withdraw_at, show_on_leaderboard,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20,
			$21, $22
		)`
	_, err := t.tx.Exec(ctx, query,
		u.Address, u.DisplayName, u.YCBalance, u.Principal, u.YCSpent, u.YCWon,
		u.LastAccrualAt, u.TotalBets, u.Wins, u.Losses, u.StreakCount, u.CompletedQuests,
		u.XP, u.Level, u.Accuracy, u.YieldEfficiency, u.WisdomIndex,
		u.FirstDepositAt, u.FirstWithdrawAt, u.ShowOnLeaderboard,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create user %s: %w", u.Address, err)
	}
	return nil
}

func (t *ledgerTx) PutUser(ctx context.Context, u domain.User) error {
	const query = `
		UPDATE users SET
			display_name      = $2,
			yc_balance        = $3,
			principal         = $4,
			yc_spent          = $5,
			yc_won            = $6,
			last_accrual_at   = $7,
			total_bets        = $8,
			wins              = $9,
			losses            = $10,
			streak_count      = $11,
			completed_quests  = $12,
			xp                = $13,
			level             = $14,
			accuracy          = $15,
			yield_efficiency  = $16,
			wisdom_index      = $17,
			first_deposit_at  = $18,
			first_withdraw_at = $19,
			show_on_leaderboard = $20,
			updated_at        = $21
		WHERE address = $1`
	tag, err := t.tx.Exec(ctx, query,
		u.Address, u.DisplayName, u.YCBalance, u.Principal, u.YCSpent, u.YCWon,
		u.LastAccrualAt, u.TotalBets, u.Wins, u.Losses, u.StreakCount, u.CompletedQuests,
		u.XP, u.Level, u.Accuracy, u.YieldEfficiency, u.WisdomIndex,
		u.FirstDepositAt, u.FirstWithdrawAt, u.ShowOnLeaderboard, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update user %s: %w", u.Address, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const marketCols = `id, question, close_time, difficulty, yes_pool, no_pool,
	resolved, outcome, resolved_at, created_by, created_at, updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var outcome *string
	err := row.Scan(
		&m.ID, &m.Question, &m.CloseTime, &m.Difficulty, &m.YesPool, &m.NoPool,
		&m.Resolved, &outcome, &m.ResolvedAt, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	if outcome != nil {
		o := domain.Outcome(*outcome)
		m.Outcome = &o
	}
	return m, nil
}

func outcomeArg(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

func (t *ledgerTx) GetMarketForUpdate(ctx context.Context, id string) (domain.Market, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1 FOR UPDATE`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s for update: %w", id, err)
	}
	return m, nil
}

func (t *ledgerTx) CreateMarket(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, question, close_time, difficulty, yes_pool, no_pool,
			resolved, outcome, resolved_at, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)`
	_, err := t.tx.Exec(ctx, query,
		m.ID, m.Question, m.CloseTime, m.Difficulty, m.YesPool, m.NoPool,
		m.Resolved, outcomeArg(m.Outcome), m.ResolvedAt, m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

func (t *ledgerTx) PutMarket(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			question    = $2,
			close_time  = $3,
			difficulty  = $4,
			yes_pool    = $5,
			no_pool     = $6,
			resolved    = $7,
			outcome     = $8,
			resolved_at = $9,
			updated_at  = $10
		WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query,
		m.ID, m.Question, m.CloseTime, m.Difficulty, m.YesPool, m.NoPool,
		m.Resolved, outcomeArg(m.Outcome), m.ResolvedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) FindOpenMarketByQuestion(ctx context.Context, question string, now time.Time) (domain.Market, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE question = $1 AND NOT resolved AND close_time > $2
		 ORDER BY created_at DESC
		 LIMIT 1
		 FOR UPDATE`, question, now)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: find open market by question: %w", err)
	}
	return m, nil
}

const positionCols = `id, market_id, address, side, amount, claimed, payout, won,
	placed_at, claimed_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var side string
	err := row.Scan(
		&p.ID, &p.MarketID, &p.Address, &side, &p.Amount, &p.Claimed, &p.Payout, &p.Won,
		&p.PlacedAt, &p.ClaimedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Side = domain.Side(side)
	return p, nil
}

func (t *ledgerTx) GetPositionForUpdate(ctx context.Context, id string) (domain.Position, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s for update: %w", id, err)
	}
	return p, nil
}

func (t *ledgerTx) CreatePosition(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			id, market_id, address, side, amount, claimed, payout, won,
			placed_at, claimed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10
		)`
	_, err := t.tx.Exec(ctx, query,
		p.ID, p.MarketID, p.Address, string(p.Side), p.Amount, p.Claimed, p.Payout, p.Won,
		p.PlacedAt, p.ClaimedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

func (t *ledgerTx) PutPosition(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET
			claimed    = $2,
			payout     = $3,
			won        = $4,
			claimed_at = $5
		WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query, p.ID, p.Claimed, p.Payout, p.Won, p.ClaimedAt)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) ListRecentClaimed(ctx context.Context, address string, limit int) ([]domain.Position, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+positionCols+` FROM positions
		 WHERE address = $1 AND claimed
		 ORDER BY claimed_at DESC
		 LIMIT $2`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent claimed positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan claimed position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent claimed rows: %w", err)
	}
	return positions, nil
}

const questCols = `id, address, question, suggested_stake, difficulty, learning_outcome,
	market_id, accepted, completed, created_at, accepted_at, completed_at`

func scanQuest(row pgx.Row) (domain.Quest, error) {
	var q domain.Quest
	err := row.Scan(
		&q.ID, &q.Address, &q.Question, &q.SuggestedStake, &q.Difficulty, &q.LearningOutcome,
		&q.MarketID, &q.Accepted, &q.Completed, &q.CreatedAt, &q.AcceptedAt, &q.CompletedAt,
	)
	if err != nil {
		return domain.Quest{}, err
	}
	return q, nil
}

func (t *ledgerTx) GetQuestForUpdate(ctx context.Context, id string) (domain.Quest, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+questCols+` FROM quests WHERE id = $1 FOR UPDATE`, id)
	q, err := scanQuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quest{}, domain.ErrNotFound
		}
		return domain.Quest{}, fmt.Errorf("postgres: get quest %s for update: %w", id, err)
	}
	return q, nil
}

func (t *ledgerTx) CreateQuest(ctx context.Context, q domain.Quest) error {
	const query = `
		INSERT INTO quests (
			id, address, question, suggested_stake, difficulty, learning_outcome,
			market_id, accepted, completed, created_at, accepted_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)`
	_, err := t.tx.Exec(ctx, query,
		q.ID, q.Address, q.Question, q.SuggestedStake, q.Difficulty, q.LearningOutcome,
		q.MarketID, q.Accepted, q.Completed, q.CreatedAt, q.AcceptedAt, q.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create quest %s: %w", q.ID, err)
	}
	return nil
}

func (t *ledgerTx) PutQuest(ctx context.Context, q domain.Quest) error {
	const query = `
		UPDATE quests SET
			market_id    = $2,
			accepted     = $3,
			completed    = $4,
			accepted_at  = $5,
			completed_at = $6
		WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query,
		q.ID, q.MarketID, q.Accepted, q.Completed, q.AcceptedAt, q.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update quest %s: %w", q.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) ListOpenQuestsByMarket(ctx context.Context, address, marketID string) ([]domain.Quest, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+questCols+` FROM quests
		 WHERE address = $1 AND market_id = $2 AND accepted AND NOT completed
		 FOR UPDATE`, address, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open quests by market: %w", err)
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan open quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open quests rows: %w", err)
	}
	return quests, nil
}

func (t *ledgerTx) EarnAchievement(ctx context.Context, a domain.Achievement) (bool, error) {
	const query = `
		INSERT INTO achievements (address, type, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address, type) DO NOTHING`
	tag, err := t.tx.Exec(ctx, query, a.Address, string(a.Type), a.EarnedAt)
	if err != nil {
		return false, fmt.Errorf("postgres: earn achievement %s/%s: %w", a.Address, a.Type, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *ledgerTx) ListAchievements(ctx context.Context, address string) ([]domain.Achievement, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT address, type, earned_at FROM achievements WHERE address = $1 ORDER BY earned_at`,
		address)
	if err != nil {
		return nil, fmt.Errorf("postgres: list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		var typ string
		if err := rows.Scan(&a.Address, &typ, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan achievement: %w", err)
		}
		a.Type = domain.AchievementType(typ)
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list achievements rows: %w", err)
	}
	return achievements, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
