package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMarketClosed      = errors.New("market closed")
	ErrMarketResolved    = errors.New("market already resolved")
	ErrMarketNotResolved = errors.New("market not yet resolved")
	ErrAlreadyClaimed    = errors.New("position already claimed")
	ErrTransientConflict = errors.New("concurrent update conflict, retry")
	ErrDependency        = errors.New("dependency unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrLockHeld          = errors.New("lock already held")
)

// ValidationError reports a rejected request field. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientBalanceError carries the balance state that failed the check.
type InsufficientBalanceError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s",
		e.Balance.String(), e.Required.String())
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsInsufficientBalance reports whether err is an InsufficientBalanceError.
func IsInsufficientBalance(err error) bool {
	var ib InsufficientBalanceError
	return errors.As(err, &ib)
}
