package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/platform/chain"
)

// RulesService is the slice of the rules layer the handler needs.
type RulesService interface {
	CheckAchievements(ctx context.Context, address string) ([]domain.AchievementType, error)
	ListAchievements(ctx context.Context, address string) ([]domain.Achievement, error)
}

// AchievementHandler serves achievement checks and listings.
type AchievementHandler struct {
	rules  RulesService
	logger *slog.Logger
}

// NewAchievementHandler creates an AchievementHandler with the given service
// and logger.
func NewAchievementHandler(rules RulesService, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{
		rules:  rules,
		logger: logHandler(logger, "achievement"),
	}
}

type checkAchievementsRequest struct {
	Address string `json:"address"`
}

type checkAchievementsResponse struct {
	NewlyEarned []string `json:"newlyEarned"`
}

// CheckAchievements evaluates every rule against the user's current stats and
// returns the types earned by this call. Already-earned types never repeat.
// POST /api/achievements/check
func (h *AchievementHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	var req checkAchievementsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	earned, err := h.rules.CheckAchievements(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	names := make([]string, 0, len(earned))
	for _, t := range earned {
		names = append(names, string(t))
	}
	if len(names) > 0 {
		h.logger.InfoContext(r.Context(), "achievements earned",
			slog.String("address", address),
			slog.Any("types", names),
		)
	}
	writeJSON(w, http.StatusOK, checkAchievementsResponse{NewlyEarned: names})
}

// listAchievementsResponse wraps the achievement list.
type listAchievementsResponse struct {
	Achievements []achievementJSON `json:"achievements"`
}

// ListAchievements returns every achievement the user has earned.
// GET /api/achievements?address=0x...
func (h *AchievementHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	address, err := chain.NormalizeAddress(r.URL.Query().Get("address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	achievements, err := h.rules.ListAchievements(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listAchievementsResponse{
		Achievements: renderAchievements(achievements),
	})
}
