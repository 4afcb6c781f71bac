package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
)

// sweepParallelism bounds concurrent market resolutions in one sweep.
const sweepParallelism = 4

// ResolutionService transitions markets from open to resolved, either by an
// admin decision or by the periodic auto-resolution sweep. Resolution never
// pays out; settlement is pull-based through the ClaimService.
type ResolutionService struct {
	ledger   domain.Ledger
	audits   domain.AuditStore
	bus      domain.SignalBus
	drawer   OutcomeDrawer
	archiver domain.Archiver // optional
	notify   Notifier        // optional
	logger   *slog.Logger
	now      clock
}

// Notifier is the subset of the notification dispatcher the resolution flow
// uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// NewResolutionService creates a ResolutionService. archiver and notify may
// be nil.
func NewResolutionService(
	ledger domain.Ledger,
	audits domain.AuditStore,
	bus domain.SignalBus,
	drawer OutcomeDrawer,
	archiver domain.Archiver,
	notify Notifier,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		ledger:   ledger,
		audits:   audits,
		bus:      bus,
		drawer:   drawer,
		archiver: archiver,
		notify:   notify,
		logger:   logger,
		now:      defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *ResolutionService) WithClock(now func() time.Time) *ResolutionService {
	s.now = now
	return s
}

// Resolve records a manual outcome for a market. Requires an admin
// capability; resolving an already-resolved market returns
// ErrMarketResolved without a second outcome.
func (s *ResolutionService) Resolve(ctx context.Context, cap auth.Capability, marketID string, outcome domain.Outcome) (domain.Market, error) {
	if !cap.Admin {
		return domain.Market{}, domain.ErrUnauthorized
	}
	if !outcome.Valid() {
		return domain.Market{}, domain.ValidationError{Field: "outcome", Reason: "must be YES, NO, or CANCEL"}
	}

	m, err := s.resolveOne(ctx, marketID, outcome, cap.Actor)
	if err != nil {
		return domain.Market{}, fmt.Errorf("resolution_service: resolve %q: %w", marketID, err)
	}
	return m, nil
}

// SweepDue auto-resolves every unresolved market whose close time has
// passed, drawing outcomes from the configured oracle. Markets resolve
// independently; one failure does not stop the sweep. A market resolved by
// another actor between selection and commit is skipped silently.
func (s *ResolutionService) SweepDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.ledger.Markets().ListDue(ctx, now, 0)
	if err != nil {
		return 0, fmt.Errorf("resolution_service: list due markets: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	var resolved int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)
	results := make(chan struct{}, len(due))

	for _, m := range due {
		g.Go(func() error {
			outcome := s.drawer.Draw(m)
			if _, err := s.resolveOne(gctx, m.ID, outcome, "sweep"); err != nil {
				if errors.Is(err, domain.ErrMarketResolved) {
					// Lost the race to a manual resolve; fine.
					return nil
				}
				s.logger.ErrorContext(gctx, "resolution_service: sweep resolve failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results <- struct{}{}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	for range results {
		resolved++
	}

	if resolved > 0 {
		s.logger.InfoContext(ctx, "resolution_service: sweep complete",
			slog.Int64("resolved", resolved),
			slog.Int("due", len(due)),
		)
	}
	return int(resolved), nil
}

// resolveOne performs the atomic check-and-set of the resolved flag and
// records the outcome. Post-commit side effects (audit, events, archive,
// notify) are best-effort.
func (s *ResolutionService) resolveOne(ctx context.Context, marketID string, outcome domain.Outcome, actor string) (domain.Market, error) {
	now := s.now()
	var out domain.Market
	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		m, err := tx.GetMarketForUpdate(ctx, marketID)
		if err != nil {
			return err
		}
		if m.Resolved {
			return domain.ErrMarketResolved
		}
		m.Resolved = true
		m.Outcome = &outcome
		t := now
		m.ResolvedAt = &t
		m.UpdatedAt = now
		if err := tx.PutMarket(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Market{}, err
	}

	audit(ctx, s.audits, s.logger, "market_resolved", map[string]any{
		"market_id": out.ID,
		"outcome":   string(outcome),
		"actor":     actor,
	})
	publish(ctx, s.bus, s.logger, domain.ChannelMarkets, map[string]any{
		"event":     domain.EventMarketResolved,
		"market_id": out.ID,
		"outcome":   string(outcome),
		"yes_pool":  out.YesPool.String(),
		"no_pool":   out.NoPool.String(),
	})

	if s.archiver != nil {
		if path, err := s.archiver.ArchiveSettlement(ctx, out.ID); err != nil {
			s.logger.WarnContext(ctx, "resolution_service: archive settlement failed",
				slog.String("market_id", out.ID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.DebugContext(ctx, "resolution_service: settlement archived",
				slog.String("market_id", out.ID),
				slog.String("path", path),
			)
		}
	}

	if s.notify != nil {
		title := fmt.Sprintf("Market resolved: %s", outcome)
		msg := fmt.Sprintf("%s\nPools YES=%s NO=%s", out.Question, out.YesPool, out.NoPool)
		if err := s.notify.Notify(ctx, domain.EventMarketResolved, title, msg); err != nil {
			s.logger.WarnContext(ctx, "resolution_service: notify failed",
				slog.String("market_id", out.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "resolution_service: market resolved",
		slog.String("market_id", out.ID),
		slog.String("outcome", string(outcome)),
		slog.String("actor", actor),
	)
	return out, nil
}
