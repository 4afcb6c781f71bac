package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quest is an externally generated challenge. The engine stores the advisor's
// suggestion opaquely; accepting a quest links it to an open market with the
// same question text. Accepted and Completed are monotonic flags.
type Quest struct {
	ID              string
	Address         string
	Question        string
	SuggestedStake  decimal.Decimal
	Difficulty      int
	LearningOutcome string

	MarketID  *string
	Accepted  bool
	Completed bool

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// QuestSuggestion is the advisor's raw proposal for a new quest.
type QuestSuggestion struct {
	Question        string          `json:"question"`
	SuggestedStake  decimal.Decimal `json:"suggestedStake"`
	Difficulty      int             `json:"difficulty"`
	LearningOutcome string          `json:"learningOutcome"`
}

// Hint is the advisor's probability estimate for a question. Stored and
// served opaquely; it never gates a money-moving operation.
type Hint struct {
	Probability float64 `json:"probability"` // in [0,1]
	Rationale   string  `json:"rationale"`
	Tip         string  `json:"tip"`
}

// FallbackHint is served when the advisor is unavailable or returns garbage.
func FallbackHint() Hint {
	return Hint{
		Probability: 0.5,
		Rationale:   "No advisor signal available; treat both outcomes as equally likely.",
		Tip:         "Stake conservatively when the advisor is offline.",
	}
}
