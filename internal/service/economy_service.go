package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// EconomyService manages user balances: yield accrual and observed principal
// changes reported by the external custody oracle.
type EconomyService struct {
	ledger domain.Ledger
	audits domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
	apr    decimal.Decimal
	now    clock
}

// NewEconomyService creates an EconomyService with the given APR (e.g. 0.05).
func NewEconomyService(ledger domain.Ledger, audits domain.AuditStore, bus domain.SignalBus, apr decimal.Decimal, logger *slog.Logger) *EconomyService {
	return &EconomyService{
		ledger: ledger,
		audits: audits,
		bus:    bus,
		logger: logger,
		apr:    apr,
		now:    defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *EconomyService) WithClock(now func() time.Time) *EconomyService {
	s.now = now
	return s
}

// AccrueResult reports the outcome of one accrual pass.
type AccrueResult struct {
	Address    string
	NewBalance decimal.Decimal
	Delta      decimal.Decimal
}

// Accrue applies simple-interest yield to the user's balance for the time
// elapsed since the last accrual. Safe to call at any frequency: a call with
// no elapsed time is a no-op.
func (s *EconomyService) Accrue(ctx context.Context, address string) (AccrueResult, error) {
	now := s.now()
	var res AccrueResult
	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		u, err := getOrCreateUser(ctx, tx, address, now)
		if err != nil {
			return err
		}
		delta := accrueUser(&u, s.apr, now)
		if err := tx.PutUser(ctx, u); err != nil {
			return err
		}
		res = AccrueResult{Address: address, NewBalance: u.YCBalance, Delta: delta}
		return nil
	})
	if err != nil {
		return AccrueResult{}, fmt.Errorf("economy_service: accrue %q: %w", address, err)
	}
	return res, nil
}

// AccrueSweep applies pending yield for every user holding principal whose
// last accrual is older than minAge. Returns the number of users accrued.
// Intended for the background poller; per-user failures are logged and do
// not stop the sweep.
func (s *EconomyService) AccrueSweep(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-minAge)
	addrs, err := s.ledger.Users().ListForAccrual(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("economy_service: list for accrual: %w", err)
	}

	accrued := 0
	for _, addr := range addrs {
		if ctx.Err() != nil {
			return accrued, ctx.Err()
		}
		if _, err := s.Accrue(ctx, addr); err != nil {
			s.logger.WarnContext(ctx, "economy_service: sweep accrue failed",
				slog.String("address", addr),
				slog.String("error", err.Error()),
			)
			continue
		}
		accrued++
	}
	return accrued, nil
}

// ObservePrincipal records a new principal balance reported by the custody
// oracle. Pending yield on the old principal is applied first, then the
// deposit/withdraw bookkeeping: the first increase stamps FirstDepositAt, the
// first decrease stamps FirstWithdrawAt, both set-once. A rules pass follows
// since WHALE and DIAMOND_HANDS depend on principal state.
func (s *EconomyService) ObservePrincipal(ctx context.Context, address string, newPrincipal decimal.Decimal) (domain.User, error) {
	if newPrincipal.IsNegative() {
		return domain.User{}, domain.ValidationError{Field: "principal", Reason: "must be non-negative"}
	}

	now := s.now()
	var out domain.User
	var awarded []domain.Achievement
	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		u, err := getOrCreateUser(ctx, tx, address, now)
		if err != nil {
			return err
		}

		accrueUser(&u, s.apr, now)

		diff := newPrincipal.Sub(u.Principal)
		if diff.Sign() > 0 && u.FirstDepositAt == nil {
			t := now
			u.FirstDepositAt = &t
		}
		if diff.Sign() < 0 && u.FirstWithdrawAt == nil {
			t := now
			u.FirstWithdrawAt = &t
		}
		u.Principal = newPrincipal
		u.UpdatedAt = now

		awarded, err = applyRules(ctx, tx, &u, now)
		if err != nil {
			return err
		}
		if err := tx.PutUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("economy_service: observe principal %q: %w", address, err)
	}

	audit(ctx, s.audits, s.logger, "principal_observed", map[string]any{
		"address":   address,
		"principal": newPrincipal.String(),
	})
	publishAchievements(ctx, s.bus, s.logger, awarded)

	s.logger.InfoContext(ctx, "economy_service: principal observed",
		slog.String("address", address),
		slog.String("principal", newPrincipal.String()),
	)
	return out, nil
}

// GetUser returns the user record, or ErrNotFound.
func (s *EconomyService) GetUser(ctx context.Context, address string) (domain.User, error) {
	u, err := s.ledger.Users().Get(ctx, address)
	if err != nil {
		return domain.User{}, fmt.Errorf("economy_service: get user %q: %w", address, err)
	}
	return u, nil
}
