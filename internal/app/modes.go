package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/server"
	"github.com/yieldplay/yieldplay/internal/server/handler"
	"github.com/yieldplay/yieldplay/internal/server/ws"
	"github.com/yieldplay/yieldplay/internal/service"
)

const (
	// sweepLockName serializes the resolution sweep across replicas.
	sweepLockName = "resolution_sweep"

	// sweepLockTTL bounds how long a crashed replica can hold the lock.
	sweepLockTTL = 2 * time.Minute

	// accrualBatchSize caps users accrued per background pass.
	accrualBatchSize = 500
)

// services bundles the fully constructed service layer.
type services struct {
	economy     *service.EconomyService
	markets     *service.MarketService
	wagers      *service.WagerService
	resolution  *service.ResolutionService
	claims      *service.ClaimService
	rules       *service.RulesService
	quests      *service.QuestService
	leaderboard *service.LeaderboardService
}

// buildServices constructs the service layer on top of the wired
// infrastructure.
func (a *App) buildServices(deps *Dependencies) *services {
	apr := decimal.NewFromFloat(a.cfg.Economy.APR)

	var drawer service.OutcomeDrawer
	switch strings.ToLower(a.cfg.Resolution.Oracle) {
	case "uniform":
		drawer = service.NewUniformDrawer(a.cfg.Resolution.Seed)
	default:
		drawer = service.NewPoolWeightedDrawer(a.cfg.Resolution.Seed)
	}

	return &services{
		economy:     service.NewEconomyService(deps.Ledger, deps.AuditStore, deps.SignalBus, apr, a.logger),
		markets:     service.NewMarketService(deps.Ledger, deps.AuditStore, deps.SignalBus, a.logger),
		wagers:      service.NewWagerService(deps.Ledger, deps.AuditStore, deps.SignalBus, apr, a.logger),
		resolution:  service.NewResolutionService(deps.Ledger, deps.AuditStore, deps.SignalBus, drawer, deps.Archiver, deps.Notifier, a.logger),
		claims:      service.NewClaimService(deps.Ledger, deps.AuditStore, deps.SignalBus, a.logger),
		rules:       service.NewRulesService(deps.Ledger, deps.SignalBus, a.logger),
		quests:      service.NewQuestService(deps.Ledger, deps.Advisor, deps.AuditStore, deps.SignalBus, a.logger),
		leaderboard: service.NewLeaderboardService(deps.UserStore, deps.LeaderboardCache, a.logger),
	}
}

// ServeMode runs the full engine: HTTP API, WebSocket hub, background yield
// accrual, and the resolution sweep.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "serve mode starting")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}

	g.Go(func() error {
		return a.runAccrualPoller(ctx, svcs)
	})

	g.Go(func() error {
		return a.runSweepLoop(ctx, deps, svcs)
	})

	return g.Wait()
}

// SweepMode runs only the resolution sweep, for a dedicated worker replica.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "sweep mode starting")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	g.Go(func() error {
		return a.runSweepLoop(ctx, deps, svcs)
	})

	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, a.cfg.Mode)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	handlers := server.Handlers{
		Health:       handler.NewHealthHandler(a.logger),
		Markets:      handler.NewMarketHandler(svcs.markets, svcs.resolution, a.logger),
		Wagers:       handler.NewWagerHandler(svcs.wagers, a.logger),
		Claims:       handler.NewClaimHandler(svcs.claims, a.logger),
		Users:        handler.NewUserHandler(svcs.economy, a.logger),
		Leaderboard:  handler.NewLeaderboardHandler(svcs.leaderboard, a.logger),
		Achievements: handler.NewAchievementHandler(svcs.rules, a.logger),
		Quests:       handler.NewQuestHandler(svcs.quests, a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, auth.NewVerifier(a.cfg.Admin.SecretHash), deps.RateLimiter, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runAccrualPoller applies pending yield to active users on a fixed interval.
// Accrual is also applied lazily inside every money-moving operation, so the
// poller only keeps idle balances current.
func (a *App) runAccrualPoller(ctx context.Context, svcs *services) error {
	interval := a.cfg.Economy.AccrualInterval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "accrual poller started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := svcs.economy.AccrueSweep(ctx, interval, accrualBatchSize)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.WarnContext(ctx, "accrual poller: sweep failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if n > 0 {
				a.logger.DebugContext(ctx, "accrual poller: pass complete",
					slog.Int("users", n),
				)
			}
		}
	}
}

// runSweepLoop resolves due markets on a fixed interval. When a lock manager
// is wired, the distributed lock ensures only one replica sweeps at a time;
// losing the lock race skips the pass.
func (a *App) runSweepLoop(ctx context.Context, deps *Dependencies, svcs *services) error {
	interval := a.cfg.Resolution.SweepInterval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "resolution sweep started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.sweepOnce(ctx, deps, svcs); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.WarnContext(ctx, "resolution sweep: pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// sweepOnce runs a single locked sweep pass.
func (a *App) sweepOnce(ctx context.Context, deps *Dependencies, svcs *services) error {
	if deps.LockManager != nil {
		release, err := deps.LockManager.Acquire(ctx, sweepLockName, sweepLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.DebugContext(ctx, "resolution sweep: another replica holds the lock")
				return nil
			}
			return err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				a.logger.WarnContext(ctx, "resolution sweep: release lock failed",
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	n, err := svcs.resolution.SweepDue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.InfoContext(ctx, "resolution sweep: markets resolved",
			slog.Int("count", n),
		)
	}
	return nil
}
