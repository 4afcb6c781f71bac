package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// QuestStore implements domain.QuestStore using PostgreSQL.
type QuestStore struct {
	pool *pgxpool.Pool
}

// NewQuestStore creates a new QuestStore backed by the given connection pool.
func NewQuestStore(pool *pgxpool.Pool) *QuestStore {
	return &QuestStore{pool: pool}
}

// GetByID retrieves a quest by its primary key.
func (s *QuestStore) GetByID(ctx context.Context, id string) (domain.Quest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+questCols+` FROM quests WHERE id = $1`, id)
	q, err := scanQuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quest{}, domain.ErrNotFound
		}
		return domain.Quest{}, fmt.Errorf("postgres: get quest %s: %w", id, err)
	}
	return q, nil
}

// ListByUser returns the user's quests, newest first.
func (s *QuestStore) ListByUser(ctx context.Context, address string, opts domain.ListOpts) ([]domain.Quest, error) {
	query := `SELECT ` + questCols + ` FROM quests
		WHERE address = $1
		ORDER BY created_at DESC`
	args := []any{address}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list quests by user: %w", err)
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list quests rows: %w", err)
	}
	return quests, nil
}
