package service

import (
	"math/rand"
	"sync"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// OutcomeDrawer picks the outcome for an auto-resolved market. Automatic
// resolution never produces CANCEL. Implementations take an explicit random
// source so sweeps are reproducible in tests.
type OutcomeDrawer interface {
	Draw(m domain.Market) domain.Outcome
}

// PoolWeightedDrawer reproduces the legacy simulated oracle: the YES
// probability is 0.2 + 0.6 * yesPool/(yesPool+noPool), 0.5 when both pools
// are empty. Pool-dependent odds let bettors nudge the oracle; keep this
// drawer only where that behaviour is wanted, otherwise use UniformDrawer.
type PoolWeightedDrawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPoolWeightedDrawer creates a PoolWeightedDrawer seeded with seed.
func NewPoolWeightedDrawer(seed int64) *PoolWeightedDrawer {
	return &PoolWeightedDrawer{rng: rand.New(rand.NewSource(seed))}
}

// Draw picks YES with probability 0.2 + 0.6*yesWeight.
func (d *PoolWeightedDrawer) Draw(m domain.Market) domain.Outcome {
	yesWeight := 0.5
	total := m.TotalPool()
	if total.Sign() > 0 {
		yesWeight, _ = m.YesPool.Div(total).Float64()
	}

	d.mu.Lock()
	r := d.rng.Float64()
	d.mu.Unlock()

	if r < yesWeight*0.6+0.2 {
		return domain.OutcomeYes
	}
	return domain.OutcomeNo
}

// UniformDrawer ignores pool state entirely and flips a fair coin.
type UniformDrawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewUniformDrawer creates a UniformDrawer seeded with seed.
func NewUniformDrawer(seed int64) *UniformDrawer {
	return &UniformDrawer{rng: rand.New(rand.NewSource(seed))}
}

// Draw picks YES or NO with equal probability.
func (d *UniformDrawer) Draw(domain.Market) domain.Outcome {
	d.mu.Lock()
	r := d.rng.Float64()
	d.mu.Unlock()

	if r < 0.5 {
		return domain.OutcomeYes
	}
	return domain.OutcomeNo
}

// FixedDrawer always returns the same outcome. Test helper.
type FixedDrawer struct {
	Outcome domain.Outcome
}

// Draw returns the fixed outcome.
func (d FixedDrawer) Draw(domain.Market) domain.Outcome { return d.Outcome }
