package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// LeaderboardService is the slice of the leaderboard layer the handler needs.
type LeaderboardService interface {
	Query(ctx context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, error)
}

// LeaderboardHandler serves the ranked player projection.
type LeaderboardHandler struct {
	board  LeaderboardService
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler with the given service
// and logger.
func NewLeaderboardHandler(board LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		board:  board,
		logger: logHandler(logger, "leaderboard"),
	}
}

// leaderboardResponse wraps the ranked page with its query echo.
type leaderboardResponse struct {
	Entries []leaderboardEntryJSON `json:"entries"`
	Metric  string                 `json:"metric"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// Leaderboard returns a ranked page of eligible players.
// GET /api/leaderboard?metric=wisdom&search=&limit=50&offset=0
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	q := r.URL.Query()

	metric := domain.LeaderboardMetric(q.Get("metric"))
	if metric == "" {
		metric = domain.MetricWisdom
	}

	entries, err := h.board.Query(r.Context(), domain.LeaderboardQuery{
		Metric: metric,
		Search: q.Get("search"),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, leaderboardResponse{
		Entries: renderLeaderboard(entries),
		Metric:  string(metric),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}
