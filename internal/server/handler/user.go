package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/platform/chain"
	"github.com/yieldplay/yieldplay/internal/service"
)

// EconomyService is the slice of the economy layer the handler needs.
type EconomyService interface {
	GetUser(ctx context.Context, address string) (domain.User, error)
	ObservePrincipal(ctx context.Context, address string, newPrincipal decimal.Decimal) (domain.User, error)
	Accrue(ctx context.Context, address string) (service.AccrueResult, error)
}

// UserHandler serves user profile and principal endpoints.
type UserHandler struct {
	economy EconomyService
	logger  *slog.Logger
}

// NewUserHandler creates a UserHandler with the given service and logger.
func NewUserHandler(economy EconomyService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		economy: economy,
		logger:  logHandler(logger, "user"),
	}
}

// GetUser returns one user profile, accrual-current as of the last write.
// GET /api/users/{address}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	address, err := chain.NormalizeAddress(pathParam(r, "address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := h.economy.GetUser(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renderUser(user))
}

type observePrincipalRequest struct {
	Address   string          `json:"address"`
	Principal decimal.Decimal `json:"principal"`
}

// ObservePrincipal records the externally custodied principal balance for a
// user, creating the user on first sight. Accrued yield up to now is applied
// against the old principal before the new value takes effect.
// POST /api/principal/observe
func (h *UserHandler) ObservePrincipal(w http.ResponseWriter, r *http.Request) {
	var req observePrincipalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := h.economy.ObservePrincipal(r.Context(), address, req.Principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "principal observed",
		slog.String("address", address),
		slog.String("principal", user.Principal.String()),
	)
	writeJSON(w, http.StatusOK, renderUser(user))
}

type accrueRequest struct {
	Address string `json:"address"`
}

type accrueResponse struct {
	Address    string `json:"address"`
	NewBalance string `json:"newBalance"`
	Delta      string `json:"delta"`
}

// Accrue applies pending simple-interest yield for one user on demand.
// POST /api/accrue
func (h *UserHandler) Accrue(w http.ResponseWriter, r *http.Request) {
	var req accrueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.economy.Accrue(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accrueResponse{
		Address:    chain.ChecksumAddress(result.Address),
		NewBalance: result.NewBalance.String(),
		Delta:      result.Delta.String(),
	})
}
