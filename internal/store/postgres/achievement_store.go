package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// AchievementStore implements domain.AchievementStore using PostgreSQL.
type AchievementStore struct {
	pool *pgxpool.Pool
}

// NewAchievementStore creates a new AchievementStore backed by the given connection pool.
func NewAchievementStore(pool *pgxpool.Pool) *AchievementStore {
	return &AchievementStore{pool: pool}
}

// ListByUser returns the user's earned achievements in earn order.
func (s *AchievementStore) ListByUser(ctx context.Context, address string) ([]domain.Achievement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, type, earned_at FROM achievements
		 WHERE address = $1
		 ORDER BY earned_at`, address)
	if err != nil {
		return nil, fmt.Errorf("postgres: list achievements by user: %w", err)
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
