package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the side of a binary market a wager is placed on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether the side is YES or NO.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Outcome is the terminal result of a market. CANCEL refunds all stakes.
type Outcome string

const (
	OutcomeYes    Outcome = "YES"
	OutcomeNo     Outcome = "NO"
	OutcomeCancel Outcome = "CANCEL"
)

// Valid reports whether the outcome is one of YES, NO, or CANCEL.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeYes, OutcomeNo, OutcomeCancel:
		return true
	}
	return false
}

// Market is a pari-mutuel binary question. Pools only grow while the market
// is open; once Resolved is set the pools and outcome are immutable.
type Market struct {
	ID         string
	Question   string
	CloseTime  time.Time
	Difficulty int // 1..5

	YesPool decimal.Decimal
	NoPool  decimal.Decimal

	Resolved   bool
	Outcome    *Outcome
	ResolvedAt *time.Time

	CreatedBy string // admin label or "quest"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalPool returns yesPool + noPool.
func (m Market) TotalPool() decimal.Decimal {
	return m.YesPool.Add(m.NoPool)
}

// SidePool returns the pool for the given side.
func (m Market) SidePool(s Side) decimal.Decimal {
	if s == SideYes {
		return m.YesPool
	}
	return m.NoPool
}

// Open reports whether the market can still accept wagers at the given time.
func (m Market) Open(now time.Time) bool {
	return !m.Resolved && m.CloseTime.After(now)
}

// MarketFilter narrows market list queries.
type MarketFilter struct {
	OpenOnly     bool
	ResolvedOnly bool
	Search       string // case-insensitive substring on question text
}
