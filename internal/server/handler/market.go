package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/service"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, cap auth.Capability, p service.CreateMarketParams) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	List(ctx context.Context, f domain.MarketFilter, opts domain.ListOpts) ([]domain.Market, error)
	Count(ctx context.Context) (int64, error)
	Quote(ctx context.Context, marketID string, side domain.Side, amount decimal.Decimal) (decimal.Decimal, error)
}

// ResolutionService is the slice of the resolution layer the handler needs.
type ResolutionService interface {
	Resolve(ctx context.Context, cap auth.Capability, marketID string, outcome domain.Outcome) (domain.Market, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets  MarketService
	resolver ResolutionService
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given services and logger.
func NewMarketHandler(markets MarketService, resolver ResolutionService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:  markets,
		resolver: resolver,
		logger:   logHandler(logger, "market"),
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketJSON `json:"markets"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// ListMarkets returns markets with pagination and optional filters.
// GET /api/markets?status=open|resolved&q=text&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	q := r.URL.Query()

	filter := domain.MarketFilter{Search: q.Get("q")}
	switch q.Get("status") {
	case "", "all":
	case "open":
		filter.OpenOnly = true
	case "resolved":
		filter.ResolvedOnly = true
	default:
		writeError(w, http.StatusBadRequest, "status must be open, resolved, or all")
		return
	}

	markets, err := h.markets.List(r.Context(), filter, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: renderMarkets(markets),
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renderMarket(market))
}

type createMarketRequest struct {
	Question   string          `json:"question"`
	CloseTime  time.Time       `json:"closeTime"`
	Difficulty int             `json:"difficulty"`
	SeedYes    decimal.Decimal `json:"seedYes"`
	SeedNo     decimal.Decimal `json:"seedNo"`
}

// CreateMarket opens a new market. Admin only.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	market, err := h.markets.Create(r.Context(), auth.CapabilityFrom(r.Context()), service.CreateMarketParams{
		Question:   req.Question,
		CloseTime:  req.CloseTime,
		Difficulty: req.Difficulty,
		SeedYes:    req.SeedYes,
		SeedNo:     req.SeedNo,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "market created",
		slog.String("market_id", market.ID),
		slog.String("question", market.Question),
	)
	writeJSON(w, http.StatusCreated, renderMarket(market))
}

type resolveMarketRequest struct {
	Outcome string `json:"outcome"`
}

// ResolveMarket sets the final outcome of a market. Admin only.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req resolveMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	market, err := h.resolver.Resolve(r.Context(), auth.CapabilityFrom(r.Context()), id, domain.Outcome(req.Outcome))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "market resolved",
		slog.String("market_id", market.ID),
		slog.String("outcome", req.Outcome),
	)
	writeJSON(w, http.StatusOK, renderMarket(market))
}

type quoteResponse struct {
	MarketID       string `json:"marketId"`
	Side           string `json:"side"`
	Amount         string `json:"amount"`
	ExpectedPayout string `json:"expectedPayout"`
}

// QuoteMarket previews the pari-mutuel payout for a hypothetical wager
// without writing anything.
// GET /api/markets/{id}/quote?side=YES&amount=10
func (h *MarketHandler) QuoteMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	q := r.URL.Query()
	side := domain.Side(q.Get("side"))
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}

	payout, err := h.markets.Quote(r.Context(), id, side, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		MarketID:       id,
		Side:           string(side),
		Amount:         amount.String(),
		ExpectedPayout: payout.String(),
	})
}
