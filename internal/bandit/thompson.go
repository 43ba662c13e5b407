package bandit

import (
	"math/rand"
	"sync"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// Default Beta priors for Thompson sampling (uniform).
const (
	DefaultAlphaPrior = 1.0
	DefaultBetaPrior  = 1.0
)

// Thompson samples each arm's posterior success rate and picks the largest
// draw. Rewards in [0, 5] are normalized to [0, 1]; their sum counts as
// successes and the remainder of the pull count as failures, giving a
// Beta(alpha0+successes, beta0+failures) posterior per arm.
//
// Selection is inherently stochastic: repeated calls with identical history
// yield a distribution over arms, not a fixed answer.
type Thompson struct {
	mu     sync.Mutex
	alpha0 float64
	beta0  float64
	rng    *rand.Rand
	stats  map[string]*armStats
}

// NewThompson creates the strategy. Non-positive priors fall back to 1.0; a
// nil rng gets a time-seeded source.
func NewThompson(alpha0, beta0 float64, rng *rand.Rand) *Thompson {
	if alpha0 <= 0 {
		alpha0 = DefaultAlphaPrior
	}
	if beta0 <= 0 {
		beta0 = DefaultBetaPrior
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Thompson{
		alpha0: alpha0,
		beta0:  beta0,
		rng:    rng,
		stats:  make(map[string]*armStats),
	}
}

// Name implements Strategy.
func (t *Thompson) Name() string { return StrategyThompson }

// Select implements Strategy.
func (t *Thompson) Select(_ protocol.Context, matching []*protocol.Protocol) *protocol.Protocol {
	if len(matching) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var best *protocol.Protocol
	bestSample := -1.0
	for _, p := range matching {
		var successes, failures float64
		if s, ok := t.stats[p.Name()]; ok {
			successes = s.sum / protocol.RewardMax
			failures = float64(s.pulls) - successes
		}
		sample := betaSample(t.rng, t.alpha0+successes, t.beta0+failures)
		if sample > bestSample {
			bestSample = sample
			best = p
		}
	}
	return best
}

// Update implements Strategy.
func (t *Thompson) Update(name string, reward float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[name]
	if !ok {
		s = &armStats{}
		t.stats[name] = s
	}
	s.pulls++
	s.sum += protocol.ClampReward(reward)
}

// Reset implements Strategy.
func (t *Thompson) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*armStats)
}
