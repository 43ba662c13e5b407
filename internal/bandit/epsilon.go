package bandit

import (
	"math"
	"math/rand"
	"sync"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// DefaultEpsilon is the exploration probability for epsilon-greedy.
const DefaultEpsilon = 0.1

// EpsilonGreedy explores uniformly at random with probability epsilon and
// otherwise exploits the protocol with the highest observed mean reward.
// Arms with no pulls yet fall back to the protocol's static reward so a
// fresh protocol competes on its initial score. Ties go to first-seen
// (registration) order.
type EpsilonGreedy struct {
	mu      sync.Mutex
	epsilon float64
	rng     *rand.Rand
	stats   map[string]*armStats
}

// NewEpsilonGreedy creates the strategy. Epsilon outside [0, 1] falls back
// to DefaultEpsilon; a nil rng gets a time-seeded source.
func NewEpsilonGreedy(epsilon float64, rng *rand.Rand) *EpsilonGreedy {
	if epsilon < 0 || epsilon > 1 {
		epsilon = DefaultEpsilon
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &EpsilonGreedy{
		epsilon: epsilon,
		rng:     rng,
		stats:   make(map[string]*armStats),
	}
}

// Name implements Strategy.
func (e *EpsilonGreedy) Name() string { return StrategyEpsilonGreedy }

// Select implements Strategy.
func (e *EpsilonGreedy) Select(_ protocol.Context, matching []*protocol.Protocol) *protocol.Protocol {
	if len(matching) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng.Float64() < e.epsilon {
		return matching[e.rng.Intn(len(matching))]
	}

	var best *protocol.Protocol
	bestMean := math.Inf(-1)
	for _, p := range matching {
		mean := p.Reward() // zero-pull fallback: the static reward
		if s, ok := e.stats[p.Name()]; ok && s.pulls > 0 {
			mean = s.mean()
		}
		// Strict > keeps the first-seen protocol on ties.
		if mean > bestMean {
			bestMean = mean
			best = p
		}
	}
	return best
}

// Update implements Strategy.
func (e *EpsilonGreedy) Update(name string, reward float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.stats[name]
	if !ok {
		s = &armStats{}
		e.stats[name] = s
	}
	s.pulls++
	s.sum += reward
}

// Reset implements Strategy.
func (e *EpsilonGreedy) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = make(map[string]*armStats)
}
