// Package advisor implements the quest advisor client. The advisor is an
// external HTTP service that generates practice questions and probability
// hints; everything it returns is display-level guidance, so callers degrade
// gracefully when it is down.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/yieldplay/yieldplay/internal/domain"
)

const (
	requestTimeout = 10 * time.Second

	// rateLimitKey budgets all advisor traffic as one upstream quota.
	rateLimitKey    = "advisor"
	rateLimitMax    = 30
	rateLimitWindow = time.Minute
)

// ClientConfig holds connection parameters for the advisor service.
type ClientConfig struct {
	BaseURL string
	APIKey  string
}

// Client implements service.Advisor against the advisor HTTP API, with a
// Redis-backed hint cache and a shared sliding-window rate limit. Cache and
// limiter may be nil; the client then goes straight to the network.
type Client struct {
	http    *resty.Client
	hints   domain.HintCache
	limiter domain.RateLimiter
	logger  *slog.Logger
}

// NewClient creates an advisor client.
func NewClient(cfg ClientConfig, hints domain.HintCache, limiter domain.RateLimiter, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	if cfg.APIKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{
		http:    httpClient,
		hints:   hints,
		limiter: limiter,
		logger:  logger,
	}
}

type suggestRequest struct {
	Address string `json:"address"`
}

type suggestResponse struct {
	Question        string `json:"question"`
	SuggestedStake  string `json:"suggested_stake"`
	Difficulty      int    `json:"difficulty"`
	LearningOutcome string `json:"learning_outcome"`
}

type hintRequest struct {
	Question string `json:"question"`
}

// SuggestQuest asks the advisor for a new practice question tailored to the
// user. Failures wrap domain.ErrDependency so callers can tell an advisor
// outage from a local fault.
func (c *Client) SuggestQuest(ctx context.Context, address string) (domain.QuestSuggestion, error) {
	if err := c.allow(ctx); err != nil {
		return domain.QuestSuggestion{}, err
	}

	var result suggestResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(suggestRequest{Address: address}).
		SetResult(&result).
		Post("/v1/quests")
	if err != nil {
		return domain.QuestSuggestion{}, fmt.Errorf("advisor: suggest quest: %w: %v", domain.ErrDependency, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return domain.QuestSuggestion{}, fmt.Errorf("advisor: suggest quest: status %d: %w", resp.StatusCode(), domain.ErrDependency)
	}

	stake := decimal.Zero
	if result.SuggestedStake != "" {
		stake, err = decimal.NewFromString(result.SuggestedStake)
		if err != nil {
			return domain.QuestSuggestion{}, fmt.Errorf("advisor: parse suggested stake %q: %w", result.SuggestedStake, err)
		}
	}

	return domain.QuestSuggestion{
		Question:        result.Question,
		SuggestedStake:  stake,
		Difficulty:      result.Difficulty,
		LearningOutcome: result.LearningOutcome,
	}, nil
}

// Hint asks the advisor for a probability hint on a question. Hints are
// cached by question text; cache errors are logged and treated as misses.
func (c *Client) Hint(ctx context.Context, question string) (domain.Hint, error) {
	if c.hints != nil {
		h, err := c.hints.Get(ctx, question)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.WarnContext(ctx, "advisor: hint cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if err := c.allow(ctx); err != nil {
		return domain.Hint{}, err
	}

	var h domain.Hint
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(hintRequest{Question: question}).
		SetResult(&h).
		Post("/v1/hints")
	if err != nil {
		return domain.Hint{}, fmt.Errorf("advisor: hint: %w: %v", domain.ErrDependency, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return domain.Hint{}, fmt.Errorf("advisor: hint: status %d: %w", resp.StatusCode(), domain.ErrDependency)
	}

	if c.hints != nil {
		if err := c.hints.Set(ctx, question, h); err != nil {
			c.logger.WarnContext(ctx, "advisor: hint cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return h, nil
}

func (c *Client) allow(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	allowed, err := c.limiter.Allow(ctx, rateLimitKey, rateLimitMax, rateLimitWindow)
	if err != nil {
		// A broken limiter should not take the advisor down with it.
		c.logger.WarnContext(ctx, "advisor: rate limiter failed",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !allowed {
		return fmt.Errorf("advisor: %w", domain.ErrRateLimited)
	}
	return nil
}
