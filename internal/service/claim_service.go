package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/economy"
)

// recentClaimWindow is how many prior claims are inspected for the streak
// bonus.
const recentClaimWindow = 3

// ClaimService settles positions on resolved markets, exactly once each.
type ClaimService struct {
	ledger domain.Ledger
	audits domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
	now    clock
}

// NewClaimService creates a ClaimService.
func NewClaimService(ledger domain.Ledger, audits domain.AuditStore, bus domain.SignalBus, logger *slog.Logger) *ClaimService {
	return &ClaimService{
		ledger: ledger,
		audits: audits,
		bus:    bus,
		logger: logger,
		now:    defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *ClaimService) WithClock(now func() time.Time) *ClaimService {
	s.now = now
	return s
}

// Claim settles one position for its owner: computes the pari-mutuel payout
// at resolution-time pool state, credits the balance, updates win/loss and
// streak statistics, completes any quest linked to the market on a win, and
// runs the rules pass. The claimed flag flips false -> true in the same
// transaction, so a second claim finds it set and fails with
// ErrAlreadyClaimed and zero side effects.
func (s *ClaimService) Claim(ctx context.Context, address, positionID string) (domain.ClaimResult, error) {
	now := s.now()
	var res domain.ClaimResult
	var awarded []domain.Achievement
	var completedQuests []string

	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		pos, err := tx.GetPositionForUpdate(ctx, positionID)
		if err != nil {
			return err
		}
		if pos.Address != address {
			return domain.ErrUnauthorized
		}

		m, err := tx.GetMarketForUpdate(ctx, pos.MarketID)
		if err != nil {
			return err
		}
		if !m.Resolved {
			return domain.ErrMarketNotResolved
		}
		if pos.Claimed {
			return domain.ErrAlreadyClaimed
		}

		payout, won := economy.SettlePosition(pos, m)
		cancelled := *m.Outcome == domain.OutcomeCancel

		xpEarned := 0
		if won {
			xpEarned += economy.XPPerWin

			// Streak bonus: this win plus at least two wins among the
			// user's last few claims.
			recent, err := tx.ListRecentClaimed(ctx, address, recentClaimWindow)
			if err != nil {
				return err
			}
			priorWins := 0
			for _, rp := range recent {
				if rp.Won != nil && *rp.Won {
					priorWins++
				}
			}
			if priorWins >= 2 {
				xpEarned += economy.XPStreakBonus
			}
		}

		u, err := tx.GetUserForUpdate(ctx, address)
		if err != nil {
			return err
		}

		u.YCBalance = u.YCBalance.Add(payout)
		switch {
		case won:
			u.Wins++
			u.StreakCount++
			u.YCWon = u.YCWon.Add(payout)
		case cancelled:
			// A cancel is not a definitive loss: no counters move.
		default:
			u.Losses++
			u.StreakCount = 0
		}
		u.XP += xpEarned
		u.UpdatedAt = now

		// A winning claim completes any accepted quest on this market.
		if won {
			quests, err := tx.ListOpenQuestsByMarket(ctx, address, m.ID)
			if err != nil {
				return err
			}
			for _, q := range quests {
				q.Completed = true
				t := now
				q.CompletedAt = &t
				if err := tx.PutQuest(ctx, q); err != nil {
					return err
				}
				u.CompletedQuests++
				completedQuests = append(completedQuests, q.ID)
			}
		}

		pos.Claimed = true
		t := now
		pos.ClaimedAt = &t
		pos.Payout = payout
		w := won
		pos.Won = &w

		if awarded, err = applyRules(ctx, tx, &u, now); err != nil {
			return err
		}
		if err := tx.PutUser(ctx, u); err != nil {
			return err
		}
		if err := tx.PutPosition(ctx, pos); err != nil {
			return err
		}

		res = domain.ClaimResult{
			PositionID: pos.ID,
			Payout:     payout,
			Won:        won,
			XPEarned:   xpEarned,
		}
		return nil
	})
	if err != nil {
		return domain.ClaimResult{}, fmt.Errorf("claim_service: claim %q: %w", positionID, err)
	}

	audit(ctx, s.audits, s.logger, "claim_settled", map[string]any{
		"position_id": positionID,
		"address":     address,
		"payout":      res.Payout.String(),
		"won":         res.Won,
		"xp_earned":   res.XPEarned,
	})
	publish(ctx, s.bus, s.logger, domain.ChannelClaims, map[string]any{
		"event":       domain.EventClaimSettled,
		"position_id": positionID,
		"address":     address,
		"payout":      res.Payout.String(),
		"won":         res.Won,
	})
	for _, questID := range completedQuests {
		publish(ctx, s.bus, s.logger, domain.ChannelClaims, map[string]any{
			"event":    domain.EventQuestCompleted,
			"quest_id": questID,
			"address":  address,
		})
	}
	publishAchievements(ctx, s.bus, s.logger, awarded)

	s.logger.InfoContext(ctx, "claim_service: claim settled",
		slog.String("position_id", positionID),
		slog.String("address", address),
		slog.String("payout", res.Payout.String()),
		slog.Bool("won", res.Won),
	)
	return res, nil
}
