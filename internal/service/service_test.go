package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/store/memory"
)

const testAddr = "0xaaaa00000000000000000000000000000000aaaa"

var testAPR = decimal.RequireFromString("0.05")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeClock is a settable time source shared by the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// env bundles every service wired to one in-memory ledger.
type env struct {
	ledger     *memory.Ledger
	clock      *fakeClock
	economy    *EconomyService
	markets    *MarketService
	wagers     *WagerService
	resolution *ResolutionService
	claims     *ClaimService
	rules      *RulesService
	board      *LeaderboardService
	quests     *QuestService
}

func newEnv() *env {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := memory.NewLedger()
	clk := newFakeClock()

	return &env{
		ledger:     ledger,
		clock:      clk,
		economy:    NewEconomyService(ledger, nil, nil, testAPR, logger).WithClock(clk.Now),
		markets:    NewMarketService(ledger, nil, nil, logger).WithClock(clk.Now),
		wagers:     NewWagerService(ledger, nil, nil, testAPR, logger).WithClock(clk.Now),
		resolution: NewResolutionService(ledger, nil, nil, FixedDrawer{Outcome: domain.OutcomeYes}, nil, nil, logger).WithClock(clk.Now),
		claims:     NewClaimService(ledger, nil, nil, logger).WithClock(clk.Now),
		rules:      NewRulesService(ledger, nil, logger).WithClock(clk.Now),
		board:      NewLeaderboardService(ledger.Users(), nil, logger),
		quests:     NewQuestService(ledger, nil, nil, nil, logger).WithClock(clk.Now),
	}
}

// fund gives the address a spendable YC balance by seeding principal and
// letting a year of yield accrue.
func (e *env) fund(ctx context.Context, address, principal string) {
	if _, err := e.economy.ObservePrincipal(ctx, address, dec(principal)); err != nil {
		panic(err)
	}
	e.clock.Advance(365 * 24 * time.Hour)
	if _, err := e.economy.Accrue(ctx, address); err != nil {
		panic(err)
	}
}

// openMarket creates a market closing an hour from the fake now.
func (e *env) openMarket(ctx context.Context, question string) domain.Market {
	m, err := e.markets.Create(ctx, auth.SystemCapability("test"), CreateMarketParams{
		Question:   question,
		CloseTime:  e.clock.Now().Add(time.Hour),
		Difficulty: 3,
	})
	if err != nil {
		panic(err)
	}
	return m
}
