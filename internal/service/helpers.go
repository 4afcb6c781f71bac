// Package service implements the economy engine operations on top of the
// domain ledger: accrual, wagering, resolution, claims, rules, quests, and
// the leaderboard projection. Every money-moving operation runs inside one
// ledger transaction.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/economy"
)

// clock abstracts time.Now for deterministic tests.
type clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

// getOrCreateUser loads the user row for update, creating it on first
// contact. User creation is an explicit step of every operation entry, not a
// side effect of a balance query.
func getOrCreateUser(ctx context.Context, tx domain.Tx, address string, now time.Time) (domain.User, error) {
	u, err := tx.GetUserForUpdate(ctx, address)
	if err == nil {
		return u, nil
	}
	if err != domain.ErrNotFound {
		return domain.User{}, err
	}
	u = domain.NewUser(address, now)
	if err := tx.CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// accrueUser applies pending yield to the user in place and returns the
// accrued delta. Zero or negative elapsed time is a no-op.
func accrueUser(u *domain.User, apr decimal.Decimal, now time.Time) (delta decimal.Decimal) {
	delta = economy.AccruedDelta(u.Principal, apr, now.Sub(u.LastAccrualAt))
	u.YCBalance = u.YCBalance.Add(delta)
	u.LastAccrualAt = now
	return delta
}

// applyRules refreshes the user's derived metrics and awards any newly
// eligible achievements. The unique (user, type) constraint makes repeated
// passes idempotent.
func applyRules(ctx context.Context, tx domain.Tx, u *domain.User, now time.Time) ([]domain.Achievement, error) {
	economy.RefreshDerived(u)

	existing, err := tx.ListAchievements(ctx, u.Address)
	if err != nil {
		return nil, err
	}
	earned := make(map[domain.AchievementType]bool, len(existing))
	for _, a := range existing {
		earned[a.Type] = true
	}

	var awarded []domain.Achievement
	for _, typ := range economy.EligibleAchievements(*u, earned) {
		a := domain.Achievement{Address: u.Address, Type: typ, EarnedAt: now}
		inserted, err := tx.EarnAchievement(ctx, a)
		if err != nil {
			return nil, err
		}
		if inserted {
			awarded = append(awarded, a)
		}
	}
	return awarded, nil
}

// publish sends a JSON event on the signal bus, logging instead of failing
// the operation when the bus is down.
func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, payload map[string]any) {
	if bus == nil {
		return
	}
	data, _ := json.Marshal(payload)
	if err := bus.Publish(ctx, channel, data); err != nil {
		logger.WarnContext(ctx, "service: publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// audit writes an audit entry, logging instead of failing the operation when
// the audit store is unavailable.
func audit(ctx context.Context, store domain.AuditStore, logger *slog.Logger, event string, detail map[string]any) {
	if store == nil {
		return
	}
	if err := store.Log(ctx, event, detail); err != nil {
		logger.WarnContext(ctx, "service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// publishAchievements emits one event per newly earned achievement.
func publishAchievements(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, awarded []domain.Achievement) {
	for _, a := range awarded {
		publish(ctx, bus, logger, domain.ChannelAchievements, map[string]any{
			"event":   domain.EventAchievementEarned,
			"address": a.Address,
			"type":    string(a.Type),
		})
	}
}
