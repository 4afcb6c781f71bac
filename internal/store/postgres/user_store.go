package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Get retrieves a user by address.
func (s *UserStore) Get(ctx context.Context, address string) (domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE address = $1`, address)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", address, err)
	}
	return u, nil
}

// ListForAccrual returns addresses of users holding principal whose last
// accrual is older than cutoff, oldest first.
func (s *UserStore) ListForAccrual(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address FROM users
		 WHERE principal > 0 AND last_accrual_at <= $1
		 ORDER BY last_accrual_at
		 LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list for accrual: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("postgres: scan accrual address: %w", err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// Leaderboard returns qualifying users ranked by the query's metric. Users
// qualify with at least 10 bets and leaderboard visibility on; ties break on
// address for a stable order.
func (s *UserStore) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) ([]domain.User, error) {
	var orderBy string
	switch q.Metric {
	case domain.MetricQuests:
		orderBy = "completed_quests DESC"
	case domain.MetricAccuracy:
		orderBy = "accuracy DESC"
	default:
		orderBy = "wisdom_index DESC"
	}

	query := `SELECT ` + userCols + ` FROM users
		WHERE total_bets >= 10 AND show_on_leaderboard`
	args := []any{}
	argIdx := 1

	if q.Search != "" {
		query += fmt.Sprintf(" AND (address ILIKE $%d OR display_name ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+q.Search+"%")
		argIdx++
	}

	query += " ORDER BY " + orderBy + ", address"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, q.Limit)
		argIdx++
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, q.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard query: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return users, nil
}
