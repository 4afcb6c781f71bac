package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/platform/chain"
)

// WagerService is the slice of the wager layer the handler needs.
type WagerService interface {
	PlaceWager(ctx context.Context, address, marketID string, side domain.Side, amount decimal.Decimal) (domain.Position, error)
	ListPositions(ctx context.Context, address string, opts domain.ListOpts) ([]domain.Position, error)
}

// WagerHandler serves wager placement and position listing.
type WagerHandler struct {
	wagers WagerService
	logger *slog.Logger
}

// NewWagerHandler creates a WagerHandler with the given service and logger.
func NewWagerHandler(wagers WagerService, logger *slog.Logger) *WagerHandler {
	return &WagerHandler{
		wagers: wagers,
		logger: logHandler(logger, "wager"),
	}
}

type placeWagerRequest struct {
	Address  string          `json:"address"`
	MarketID string          `json:"marketId"`
	Side     string          `json:"side"`
	Amount   decimal.Decimal `json:"amount"`
}

// PlaceWager stakes YC on one side of an open market.
// POST /api/wagers
func (h *WagerHandler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	var req placeWagerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	position, err := h.wagers.PlaceWager(r.Context(), address, req.MarketID, domain.Side(req.Side), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "wager placed",
		slog.String("position_id", position.ID),
		slog.String("market_id", position.MarketID),
		slog.String("address", position.Address),
		slog.String("amount", position.Amount.String()),
	)
	writeJSON(w, http.StatusCreated, renderPosition(position))
}

// listPositionsResponse wraps the position list with pagination metadata.
type listPositionsResponse struct {
	Positions []positionJSON `json:"positions"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

// ListPositions returns a user's positions, most recent first.
// GET /api/positions?address=0x...&limit=50&offset=0
func (h *WagerHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	address, err := chain.NormalizeAddress(r.URL.Query().Get("address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	opts := parseListOpts(r)

	positions, err := h.wagers.ListPositions(r.Context(), address, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{
		Positions: renderPositions(positions),
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
}
