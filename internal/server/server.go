package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/server/handler"
	"github.com/yieldplay/yieldplay/internal/server/middleware"
	"github.com/yieldplay/yieldplay/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// the limiter even when a RateLimiter is wired.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Markets      *handler.MarketHandler
	Wagers       *handler.WagerHandler
	Claims       *handler.ClaimHandler
	Users        *handler.UserHandler
	Leaderboard  *handler.LeaderboardHandler
	Achievements *handler.AchievementHandler
	Quests       *handler.QuestHandler
	Archives     *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API server for the game economy.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting, admin capability
// verification) and attaches the WebSocket hub. Admin-only routes are guarded
// twice: by RequireAdmin here and by capability checks in the service layer.
func NewServer(cfg Config, handlers Handlers, verifier *auth.Verifier, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	admin := middleware.RequireAdmin()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", handlers.Markets.QuoteMarket)
	mux.Handle("POST /api/markets", admin(http.HandlerFunc(handlers.Markets.CreateMarket)))
	mux.Handle("POST /api/markets/{id}/resolve", admin(http.HandlerFunc(handlers.Markets.ResolveMarket)))

	// Wager and position endpoints.
	mux.HandleFunc("POST /api/wagers", handlers.Wagers.PlaceWager)
	mux.HandleFunc("GET /api/positions", handlers.Wagers.ListPositions)

	// Claim endpoint.
	mux.HandleFunc("POST /api/claims", handlers.Claims.Claim)

	// User and economy endpoints.
	mux.HandleFunc("GET /api/users/{address}", handlers.Users.GetUser)
	mux.HandleFunc("POST /api/principal/observe", handlers.Users.ObservePrincipal)
	mux.HandleFunc("POST /api/accrue", handlers.Users.Accrue)

	// Leaderboard endpoint.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.Leaderboard)

	// Achievement endpoints.
	mux.HandleFunc("POST /api/achievements/check", handlers.Achievements.CheckAchievements)
	mux.HandleFunc("GET /api/achievements", handlers.Achievements.ListAchievements)

	// Quest and advisor endpoints.
	mux.HandleFunc("POST /api/quests/generate", handlers.Quests.GenerateQuest)
	mux.HandleFunc("POST /api/quests/{id}/accept", handlers.Quests.AcceptQuest)
	mux.HandleFunc("GET /api/quests", handlers.Quests.ListQuests)
	mux.HandleFunc("GET /api/hint", handlers.Quests.Hint)

	// Settlement archive endpoints (admin only).
	if handlers.Archives != nil {
		mux.Handle("GET /api/admin/archives", admin(http.HandlerFunc(handlers.Archives.ListArchives)))
		mux.Handle("GET /api/admin/archives/{path...}", admin(http.HandlerFunc(handlers.Archives.GetArchive)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Attach verified capabilities before routing reaches admin guards.
	h = middleware.Capability(verifier)(h)

	// Apply per-IP rate limiting when configured.
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
