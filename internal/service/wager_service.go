package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// WagerService moves yield credits from user balances into market pools.
type WagerService struct {
	ledger domain.Ledger
	audits domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
	apr    decimal.Decimal
	now    clock
}

// NewWagerService creates a WagerService. The APR is needed because a wager
// refreshes accrual before checking the balance.
func NewWagerService(ledger domain.Ledger, audits domain.AuditStore, bus domain.SignalBus, apr decimal.Decimal, logger *slog.Logger) *WagerService {
	return &WagerService{
		ledger: ledger,
		audits: audits,
		bus:    bus,
		logger: logger,
		apr:    apr,
		now:    defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *WagerService) WithClock(now func() time.Time) *WagerService {
	s.now = now
	return s
}

// PlaceWager stakes amount on one side of a market. Preconditions are checked
// in order: amount, side, market existence, close time, resolution state, and
// finally the balance after an accrual refresh. The whole effect (balance
// debit, counters, pool credit, position insert, rules pass) commits as one
// transaction; no partial effect is ever observable.
func (s *WagerService) PlaceWager(ctx context.Context, address, marketID string, side domain.Side, amount decimal.Decimal) (domain.Position, error) {
	if amount.Sign() <= 0 {
		return domain.Position{}, domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !side.Valid() {
		return domain.Position{}, domain.ValidationError{Field: "side", Reason: "must be YES or NO"}
	}

	now := s.now()
	var pos domain.Position
	var awarded []domain.Achievement
	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		m, err := tx.GetMarketForUpdate(ctx, marketID)
		if err != nil {
			return err
		}
		if !m.CloseTime.After(now) {
			return domain.ErrMarketClosed
		}
		if m.Resolved {
			return domain.ErrMarketResolved
		}

		u, err := getOrCreateUser(ctx, tx, address, now)
		if err != nil {
			return err
		}
		accrueUser(&u, s.apr, now)

		if u.YCBalance.Cmp(amount) < 0 {
			return domain.InsufficientBalanceError{Balance: u.YCBalance, Required: amount}
		}

		u.YCBalance = u.YCBalance.Sub(amount)
		u.YCSpent = u.YCSpent.Add(amount)
		u.TotalBets++
		u.UpdatedAt = now

		if side == domain.SideYes {
			m.YesPool = m.YesPool.Add(amount)
		} else {
			m.NoPool = m.NoPool.Add(amount)
		}
		m.UpdatedAt = now

		pos = domain.Position{
			ID:       uuid.NewString(),
			MarketID: m.ID,
			Address:  address,
			Side:     side,
			Amount:   amount,
			Payout:   decimal.Zero,
			PlacedAt: now,
		}

		if awarded, err = applyRules(ctx, tx, &u, now); err != nil {
			return err
		}
		if err := tx.PutUser(ctx, u); err != nil {
			return err
		}
		if err := tx.PutMarket(ctx, m); err != nil {
			return err
		}
		return tx.CreatePosition(ctx, pos)
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("wager_service: place wager: %w", err)
	}

	audit(ctx, s.audits, s.logger, "wager_placed", map[string]any{
		"position_id": pos.ID,
		"market_id":   marketID,
		"address":     address,
		"side":        string(side),
		"amount":      amount.String(),
	})
	publish(ctx, s.bus, s.logger, domain.ChannelWagers, map[string]any{
		"event":       domain.EventWagerPlaced,
		"position_id": pos.ID,
		"market_id":   marketID,
		"address":     address,
		"side":        string(side),
		"amount":      amount.String(),
	})
	publishAchievements(ctx, s.bus, s.logger, awarded)

	s.logger.InfoContext(ctx, "wager_service: wager placed",
		slog.String("position_id", pos.ID),
		slog.String("market_id", marketID),
		slog.String("address", address),
		slog.String("side", string(side)),
		slog.String("amount", amount.String()),
	)
	return pos, nil
}

// ListPositions returns a user's positions, newest first.
func (s *WagerService) ListPositions(ctx context.Context, address string, opts domain.ListOpts) ([]domain.Position, error) {
	positions, err := s.ledger.Positions().ListByUser(ctx, address, opts)
	if err != nil {
		return nil, fmt.Errorf("wager_service: list positions for %q: %w", address, err)
	}
	return positions, nil
}
