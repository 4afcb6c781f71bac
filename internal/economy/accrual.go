// Package economy holds the pure calculation core of the game: yield accrual,
// pari-mutuel pricing and settlement, derived player metrics, and the fixed
// achievement rule table. Nothing in this package performs I/O.
package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

// secondsPerYear uses the 365-day year of the simple-interest model.
const secondsPerYear = 365 * 24 * 60 * 60

var secondsPerYearDec = decimal.NewFromInt(secondsPerYear)

// AccruedDelta computes the yield credits earned on principal over elapsed
// time: principal * apr * elapsedSeconds / secondsPerYear. Elapsed durations
// of zero or less accrue nothing, which makes repeated opportunistic calls
// with no elapsed time no-ops.
func AccruedDelta(principal, apr decimal.Decimal, elapsed time.Duration) decimal.Decimal {
	if elapsed <= 0 || principal.Sign() <= 0 || apr.Sign() <= 0 {
		return decimal.Zero
	}
	elapsedSec := decimal.NewFromFloat(elapsed.Seconds())
	return principal.Mul(apr).Mul(elapsedSec).Div(secondsPerYearDec)
}
