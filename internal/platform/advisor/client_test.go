package advisor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memHintCache is a map-backed domain.HintCache for tests.
type memHintCache struct {
	hints map[string]domain.Hint
}

func (c *memHintCache) Get(_ context.Context, question string) (domain.Hint, error) {
	h, ok := c.hints[question]
	if !ok {
		return domain.Hint{}, domain.ErrNotFound
	}
	return h, nil
}

func (c *memHintCache) Set(_ context.Context, question string, h domain.Hint) error {
	c.hints[question] = h
	return nil
}

func TestSuggestQuest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/quests", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		var req suggestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xabc", req.Address)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(suggestResponse{
			Question:        "Will the S&P close green on Friday?",
			SuggestedStake:  "12.5",
			Difficulty:      3,
			LearningOutcome: "Index momentum",
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "sekrit"}, nil, nil, discard())
	s, err := c.SuggestQuest(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "Will the S&P close green on Friday?", s.Question)
	assert.True(t, s.SuggestedStake.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 3, s.Difficulty)
}

func TestSuggestQuestUpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, nil, nil, discard())
	_, err := c.SuggestQuest(context.Background(), "0xabc")
	assert.ErrorIs(t, err, domain.ErrDependency)
}

func TestHintUsesCache(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/v1/hints", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.Hint{Probability: 0.64, Rationale: "pool lean", Tip: "small stake"})
	}))
	defer srv.Close()

	cache := &memHintCache{hints: map[string]domain.Hint{}}
	c := NewClient(ClientConfig{BaseURL: srv.URL}, cache, nil, discard())

	const question = "Will it snow in May?"
	h, err := c.Hint(context.Background(), question)
	require.NoError(t, err)
	assert.InDelta(t, 0.64, h.Probability, 1e-9)
	assert.Equal(t, 1, calls)

	// Second lookup is served from the cache.
	h, err = c.Hint(context.Background(), question)
	require.NoError(t, err)
	assert.InDelta(t, 0.64, h.Probability, 1e-9)
	assert.Equal(t, 1, calls)
}
