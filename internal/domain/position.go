package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a single wager on one side of one market. Amount is fixed at
// creation; the only mutable transition is claimed false -> true, at which
// point the settlement result (payout, won) is recorded.
type Position struct {
	ID       string
	MarketID string
	Address  string
	Side     Side
	Amount   decimal.Decimal

	Claimed   bool
	Payout    decimal.Decimal
	Won       *bool // nil until claimed; CANCEL settles with won=false
	PlacedAt  time.Time
	ClaimedAt *time.Time
}

// ClaimResult is the outcome of settling one position.
type ClaimResult struct {
	PositionID string
	Payout     decimal.Decimal
	Won        bool
	XPEarned   int
}
