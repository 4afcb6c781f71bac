package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/platform/chain"
)

// ClaimService is the slice of the claim layer the handler needs.
type ClaimService interface {
	Claim(ctx context.Context, address, positionID string) (domain.ClaimResult, error)
}

// ClaimHandler serves settlement claims.
type ClaimHandler struct {
	claims ClaimService
	logger *slog.Logger
}

// NewClaimHandler creates a ClaimHandler with the given service and logger.
func NewClaimHandler(claims ClaimService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		claims: claims,
		logger: logHandler(logger, "claim"),
	}
}

type claimRequest struct {
	Address    string `json:"address"`
	PositionID string `json:"positionId"`
}

type claimResponse struct {
	PositionID string `json:"positionId"`
	Payout     string `json:"payout"`
	Won        bool   `json:"won"`
	XPEarned   int    `json:"xpEarned"`
}

// Claim settles a position on a resolved market. Claiming twice is rejected
// with a conflict; the first claim is the only one that moves YC.
// POST /api/claims
func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.claims.Claim(r.Context(), address, req.PositionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "position claimed",
		slog.String("position_id", result.PositionID),
		slog.String("address", address),
		slog.String("payout", result.Payout.String()),
		slog.Bool("won", result.Won),
	)
	writeJSON(w, http.StatusOK, claimResponse{
		PositionID: result.PositionID,
		Payout:     result.Payout.String(),
		Won:        result.Won,
		XPEarned:   result.XPEarned,
	})
}
