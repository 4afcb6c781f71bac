package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/economy"
)

// MarketService creates and lists markets and quotes expected payouts.
type MarketService struct {
	ledger domain.Ledger
	audits domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
	now    clock
}

// NewMarketService creates a MarketService.
func NewMarketService(ledger domain.Ledger, audits domain.AuditStore, bus domain.SignalBus, logger *slog.Logger) *MarketService {
	return &MarketService{
		ledger: ledger,
		audits: audits,
		bus:    bus,
		logger: logger,
		now:    defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *MarketService) WithClock(now func() time.Time) *MarketService {
	s.now = now
	return s
}

// CreateMarketParams describes a new market. Seed pools default to zero;
// seeded liquidity is not backed by positions.
type CreateMarketParams struct {
	Question   string
	CloseTime  time.Time
	Difficulty int
	SeedYes    decimal.Decimal
	SeedNo     decimal.Decimal
}

// Create opens a new market. Requires an admin capability.
func (s *MarketService) Create(ctx context.Context, cap auth.Capability, p CreateMarketParams) (domain.Market, error) {
	if !cap.Admin {
		return domain.Market{}, domain.ErrUnauthorized
	}
	question := strings.TrimSpace(p.Question)
	if question == "" {
		return domain.Market{}, domain.ValidationError{Field: "question", Reason: "must not be empty"}
	}
	now := s.now()
	if !p.CloseTime.After(now) {
		return domain.Market{}, domain.ValidationError{Field: "closeTime", Reason: "must be in the future"}
	}
	if p.Difficulty < 1 || p.Difficulty > 5 {
		return domain.Market{}, domain.ValidationError{Field: "difficulty", Reason: "must be between 1 and 5"}
	}
	if p.SeedYes.IsNegative() || p.SeedNo.IsNegative() {
		return domain.Market{}, domain.ValidationError{Field: "seed", Reason: "must be non-negative"}
	}

	m := domain.Market{
		ID:         uuid.NewString(),
		Question:   question,
		CloseTime:  p.CloseTime.UTC(),
		Difficulty: p.Difficulty,
		YesPool:    p.SeedYes,
		NoPool:     p.SeedNo,
		CreatedBy:  cap.Actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		return tx.CreateMarket(ctx, m)
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create market: %w", err)
	}

	audit(ctx, s.audits, s.logger, "market_created", map[string]any{
		"market_id": m.ID,
		"question":  m.Question,
		"actor":     cap.Actor,
	})
	publish(ctx, s.bus, s.logger, domain.ChannelMarkets, map[string]any{
		"event":      domain.EventMarketCreated,
		"market_id":  m.ID,
		"question":   m.Question,
		"close_time": m.CloseTime,
	})

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", m.ID),
		slog.String("question", m.Question),
	)
	return m, nil
}

// Get returns a single market by ID.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.ledger.Markets().GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %q: %w", id, err)
	}
	return m, nil
}

// List returns markets matching the filter.
func (s *MarketService) List(ctx context.Context, f domain.MarketFilter, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.ledger.Markets().List(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list markets: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	n, err := s.ledger.Markets().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count markets: %w", err)
	}
	return n, nil
}

// Quote returns the display-only expected payout for a hypothetical wager.
// It performs no writes and may be computed on any open market at any time.
func (s *MarketService) Quote(ctx context.Context, marketID string, side domain.Side, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !side.Valid() {
		return decimal.Zero, domain.ValidationError{Field: "side", Reason: "must be YES or NO"}
	}
	m, err := s.ledger.Markets().GetByID(ctx, marketID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("market_service: quote %q: %w", marketID, err)
	}
	return economy.ExpectedPayout(amount, m.SidePool(side), m.TotalPool()), nil
}
