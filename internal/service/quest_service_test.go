package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// stubAdvisor is a canned Advisor for wiring tests.
type stubAdvisor struct {
	suggestion domain.QuestSuggestion
	hint       domain.Hint
	fail       bool
}

func (a *stubAdvisor) SuggestQuest(context.Context, string) (domain.QuestSuggestion, error) {
	if a.fail {
		return domain.QuestSuggestion{}, errors.New("advisor down")
	}
	return a.suggestion, nil
}

func (a *stubAdvisor) Hint(context.Context, string) (domain.Hint, error) {
	if a.fail {
		return domain.Hint{}, errors.New("advisor down")
	}
	return a.hint, nil
}

func TestQuestGenerateThroughAdvisor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()
	e.quests.advisor = &stubAdvisor{suggestion: domain.QuestSuggestion{
		Question:        "Will BTC close above 100k this week?",
		SuggestedStake:  dec("25"),
		Difficulty:      4,
		LearningOutcome: "Momentum vs mean-reversion framing",
	}}

	q, err := e.quests.Generate(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, "Will BTC close above 100k this week?", q.Question)
	assert.Equal(t, 4, q.Difficulty)
	assert.False(t, q.Accepted)
	assert.Nil(t, q.MarketID)

	listed, err := e.quests.List(ctx, testAddr, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestQuestGenerateWithoutAdvisor(t *testing.T) {
	t.Parallel()
	e := newEnv()
	_, err := e.quests.Generate(context.Background(), testAddr)
	assert.ErrorIs(t, err, domain.ErrDependency)
}

func TestQuestAcceptCreatesMarket(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	q, err := e.quests.Import(ctx, testAddr, domain.QuestSuggestion{
		Question:   "Will it rain tomorrow?",
		Difficulty: 3,
	})
	require.NoError(t, err)

	accepted, err := e.quests.Accept(ctx, testAddr, q.ID)
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)
	require.NotNil(t, accepted.MarketID)

	m, err := e.markets.Get(ctx, *accepted.MarketID)
	require.NoError(t, err)
	assert.Equal(t, "Will it rain tomorrow?", m.Question)
	// Horizon scales with difficulty: one day per point.
	assert.Equal(t, e.clock.Now().Add(3*24*time.Hour), m.CloseTime)
	assert.False(t, m.Resolved)
}

func TestQuestAcceptReusesOpenMarket(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	const question = "Will ETH flip BTC this quarter?"
	first, err := e.quests.Import(ctx, testAddr, domain.QuestSuggestion{Question: question, Difficulty: 2})
	require.NoError(t, err)
	second, err := e.quests.Import(ctx, rivalAddr, domain.QuestSuggestion{Question: question, Difficulty: 2})
	require.NoError(t, err)

	first, err = e.quests.Accept(ctx, testAddr, first.ID)
	require.NoError(t, err)
	second, err = e.quests.Accept(ctx, rivalAddr, second.ID)
	require.NoError(t, err)

	assert.Equal(t, *first.MarketID, *second.MarketID, "same open question shares one market")
}

func TestQuestAcceptIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	q, err := e.quests.Import(ctx, testAddr, domain.QuestSuggestion{Question: "Once only?", Difficulty: 1})
	require.NoError(t, err)
	first, err := e.quests.Accept(ctx, testAddr, q.ID)
	require.NoError(t, err)
	again, err := e.quests.Accept(ctx, testAddr, q.ID)
	require.NoError(t, err)
	assert.Equal(t, first.MarketID, again.MarketID)
	assert.Equal(t, first.AcceptedAt, again.AcceptedAt)
}

func TestQuestAcceptOwnerOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	q, err := e.quests.Import(ctx, testAddr, domain.QuestSuggestion{Question: "Whose quest?", Difficulty: 1})
	require.NoError(t, err)
	_, err = e.quests.Accept(ctx, rivalAddr, q.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestQuestHintFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	// No advisor wired: deterministic neutral hint, no error.
	h, err := e.quests.Hint(ctx, "Will anything happen?")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, h.Probability, 1e-9)

	// Advisor failure degrades the same way.
	e.quests.advisor = &stubAdvisor{fail: true}
	h, err = e.quests.Hint(ctx, "Will anything happen?")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, h.Probability, 1e-9)

	// A healthy advisor's hint passes through.
	e.quests.advisor = &stubAdvisor{hint: domain.Hint{Probability: 0.72, Rationale: "pool skew", Tip: "size down"}}
	h, err = e.quests.Hint(ctx, "Will anything happen?")
	require.NoError(t, err)
	assert.InDelta(t, 0.72, h.Probability, 1e-9)

	_, err = e.quests.Hint(ctx, "   ")
	assert.True(t, domain.IsValidation(err))
}
