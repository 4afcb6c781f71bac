package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// RulesService exposes the achievement/metric rules pass as a standalone
// operation. The same pass also runs inside every economically significant
// operation; this entry point exists for explicit re-checks.
type RulesService struct {
	ledger domain.Ledger
	bus    domain.SignalBus
	logger *slog.Logger
	now    clock
}

// NewRulesService creates a RulesService.
func NewRulesService(ledger domain.Ledger, bus domain.SignalBus, logger *slog.Logger) *RulesService {
	return &RulesService{
		ledger: ledger,
		bus:    bus,
		logger: logger,
		now:    defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *RulesService) WithClock(now func() time.Time) *RulesService {
	s.now = now
	return s
}

// CheckAchievements recomputes the user's derived metrics and awards any
// newly eligible achievement types. Running it twice with no intervening
// state change yields an empty newly-earned set the second time.
func (s *RulesService) CheckAchievements(ctx context.Context, address string) ([]domain.AchievementType, error) {
	now := s.now()
	var awarded []domain.Achievement
	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		u, err := tx.GetUserForUpdate(ctx, address)
		if err != nil {
			return err
		}
		if awarded, err = applyRules(ctx, tx, &u, now); err != nil {
			return err
		}
		return tx.PutUser(ctx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("rules_service: check achievements %q: %w", address, err)
	}

	publishAchievements(ctx, s.bus, s.logger, awarded)

	types := make([]domain.AchievementType, 0, len(awarded))
	for _, a := range awarded {
		types = append(types, a.Type)
	}
	return types, nil
}

// ListAchievements returns every achievement the user has earned.
func (s *RulesService) ListAchievements(ctx context.Context, address string) ([]domain.Achievement, error) {
	achievements, err := s.ledger.Achievements().ListByUser(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("rules_service: list achievements %q: %w", address, err)
	}
	return achievements, nil
}
