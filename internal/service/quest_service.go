package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// questMarketHorizon is how long a quest-created market stays open per
// difficulty point.
const questMarketHorizon = 24 * time.Hour

// Advisor produces quest suggestions and probability hints. Implementations
// own their caching, rate limiting, and fallback behaviour.
type Advisor interface {
	SuggestQuest(ctx context.Context, address string) (domain.QuestSuggestion, error)
	Hint(ctx context.Context, question string) (domain.Hint, error)
}

// QuestService stores advisor-generated quests and links them to markets on
// acceptance.
type QuestService struct {
	ledger  domain.Ledger
	advisor Advisor // optional
	audits  domain.AuditStore
	bus     domain.SignalBus
	logger  *slog.Logger
	now     clock
}

// NewQuestService creates a QuestService. advisor may be nil, in which case
// Generate and Hint report the dependency as unavailable.
func NewQuestService(ledger domain.Ledger, advisor Advisor, audits domain.AuditStore, bus domain.SignalBus, logger *slog.Logger) *QuestService {
	return &QuestService{
		ledger:  ledger,
		advisor: advisor,
		audits:  audits,
		bus:     bus,
		logger:  logger,
		now:     defaultClock,
	}
}

// WithClock overrides the time source, for tests.
func (s *QuestService) WithClock(now func() time.Time) *QuestService {
	s.now = now
	return s
}

// Generate asks the advisor for a new quest and stores it. The advisor is
// purely advisory, so its failure surfaces as ErrDependency without touching
// any balance state.
func (s *QuestService) Generate(ctx context.Context, address string) (domain.Quest, error) {
	if s.advisor == nil {
		return domain.Quest{}, fmt.Errorf("quest_service: generate: %w", domain.ErrDependency)
	}
	suggestion, err := s.advisor.SuggestQuest(ctx, address)
	if err != nil {
		return domain.Quest{}, fmt.Errorf("quest_service: generate: %w", err)
	}
	return s.Import(ctx, address, suggestion)
}

// Import stores an externally produced quest suggestion for the user.
func (s *QuestService) Import(ctx context.Context, address string, suggestion domain.QuestSuggestion) (domain.Quest, error) {
	question := strings.TrimSpace(suggestion.Question)
	if question == "" {
		return domain.Quest{}, domain.ValidationError{Field: "question", Reason: "must not be empty"}
	}
	difficulty := suggestion.Difficulty
	if difficulty < 1 || difficulty > 5 {
		difficulty = 3
	}
	stake := suggestion.SuggestedStake
	if stake.IsNegative() {
		stake = decimal.Zero
	}

	now := s.now()
	q := domain.Quest{
		ID:              uuid.NewString(),
		Address:         address,
		Question:        question,
		SuggestedStake:  stake,
		Difficulty:      difficulty,
		LearningOutcome: suggestion.LearningOutcome,
		CreatedAt:       now,
	}

	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		if _, err := getOrCreateUser(ctx, tx, address, now); err != nil {
			return err
		}
		return tx.CreateQuest(ctx, q)
	})
	if err != nil {
		return domain.Quest{}, fmt.Errorf("quest_service: import quest: %w", err)
	}

	s.logger.InfoContext(ctx, "quest_service: quest stored",
		slog.String("quest_id", q.ID),
		slog.String("address", address),
	)
	return q, nil
}

// Accept links the quest to an open market with identical question text,
// creating one when none exists, and marks the quest accepted. Accepting an
// already-accepted quest returns it unchanged; the flag never reverts.
func (s *QuestService) Accept(ctx context.Context, address, questID string) (domain.Quest, error) {
	now := s.now()
	var out domain.Quest
	created := false
	err := s.ledger.WithTx(ctx, func(tx domain.Tx) error {
		q, err := tx.GetQuestForUpdate(ctx, questID)
		if err != nil {
			return err
		}
		if q.Address != address {
			return domain.ErrUnauthorized
		}
		if q.Accepted {
			out = q
			return nil
		}

		m, err := tx.FindOpenMarketByQuestion(ctx, q.Question, now)
		if err == domain.ErrNotFound {
			m = domain.Market{
				ID:         uuid.NewString(),
				Question:   q.Question,
				CloseTime:  now.Add(time.Duration(q.Difficulty) * questMarketHorizon),
				Difficulty: q.Difficulty,
				YesPool:    decimal.Zero,
				NoPool:     decimal.Zero,
				CreatedBy:  "quest",
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.CreateMarket(ctx, m); err != nil {
				return err
			}
			created = true
		} else if err != nil {
			return err
		}

		q.MarketID = &m.ID
		q.Accepted = true
		t := now
		q.AcceptedAt = &t
		if err := tx.PutQuest(ctx, q); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return domain.Quest{}, fmt.Errorf("quest_service: accept %q: %w", questID, err)
	}

	audit(ctx, s.audits, s.logger, "quest_accepted", map[string]any{
		"quest_id":       questID,
		"address":        address,
		"market_created": created,
	})
	publish(ctx, s.bus, s.logger, domain.ChannelMarkets, map[string]any{
		"event":    domain.EventQuestAccepted,
		"quest_id": questID,
		"address":  address,
	})
	return out, nil
}

// List returns the user's quests, newest first.
func (s *QuestService) List(ctx context.Context, address string, opts domain.ListOpts) ([]domain.Quest, error) {
	quests, err := s.ledger.Quests().ListByUser(ctx, address, opts)
	if err != nil {
		return nil, fmt.Errorf("quest_service: list quests %q: %w", address, err)
	}
	return quests, nil
}

// Hint returns the advisor's probability hint for a question. The advisor
// adapter degrades to a deterministic fallback when unavailable, so this is
// best-effort by construction.
func (s *QuestService) Hint(ctx context.Context, question string) (domain.Hint, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Hint{}, domain.ValidationError{Field: "question", Reason: "must not be empty"}
	}
	if s.advisor == nil {
		return domain.FallbackHint(), nil
	}
	h, err := s.advisor.Hint(ctx, question)
	if err != nil {
		s.logger.WarnContext(ctx, "quest_service: advisor hint failed",
			slog.String("error", err.Error()),
		)
		return domain.FallbackHint(), nil
	}
	return h, nil
}
