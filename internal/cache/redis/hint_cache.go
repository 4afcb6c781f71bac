package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yieldplay/yieldplay/internal/domain"
)

const hintTTL = 10 * time.Minute

// HintCache implements domain.HintCache using Redis string values with
// JSON-serialized hints. Question text is hashed into the key so arbitrary
// user input never lands in the key space.
//
// Key schema:
//
//	hint:{sha256(question)} - JSON-encoded domain.Hint
type HintCache struct {
	rdb *redis.Client
}

// NewHintCache creates a HintCache backed by the given Client.
func NewHintCache(c *Client) *HintCache {
	return &HintCache{rdb: c.Underlying()}
}

func hintKey(question string) string {
	sum := sha256.Sum256([]byte(question))
	return "hint:" + hex.EncodeToString(sum[:])
}

// Get returns the cached hint for a question, or domain.ErrNotFound on a
// cache miss.
func (hc *HintCache) Get(ctx context.Context, question string) (domain.Hint, error) {
	data, err := hc.rdb.Get(ctx, hintKey(question)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Hint{}, domain.ErrNotFound
		}
		return domain.Hint{}, fmt.Errorf("redis: get hint: %w", err)
	}

	var h domain.Hint
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.Hint{}, fmt.Errorf("redis: unmarshal hint: %w", err)
	}
	return h, nil
}

// Set stores a hint for a question with a 10-minute TTL.
func (hc *HintCache) Set(ctx context.Context, question string, h domain.Hint) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("redis: marshal hint: %w", err)
	}
	if err := hc.rdb.Set(ctx, hintKey(question), data, hintTTL).Err(); err != nil {
		return fmt.Errorf("redis: set hint: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HintCache = (*HintCache)(nil)
