package bandit

import (
	"math"
	"sync"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// DefaultUCBC is the UCB1 exploration coefficient.
const DefaultUCBC = 2.0

// UCB1 ranks arms by mean reward plus a shrinking confidence bonus
// c*sqrt(ln(total)/pulls). Any matching arm with zero pulls is selected
// immediately, in matching order, before any score comparison: unvisited
// arms have an unbounded confidence interval.
type UCB1 struct {
	mu         sync.Mutex
	c          float64
	totalPulls int
	stats      map[string]*armStats
}

// NewUCB1 creates the strategy. A non-positive c falls back to DefaultUCBC.
func NewUCB1(c float64) *UCB1 {
	if c <= 0 {
		c = DefaultUCBC
	}
	return &UCB1{
		c:     c,
		stats: make(map[string]*armStats),
	}
}

// Name implements Strategy.
func (u *UCB1) Name() string { return StrategyUCB1 }

// Select implements Strategy.
func (u *UCB1) Select(_ protocol.Context, matching []*protocol.Protocol) *protocol.Protocol {
	if len(matching) == 0 {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	// The global counter ticks per decision so the exploration bonus
	// shrinks as the strategy accumulates experience.
	u.totalPulls++

	// Forced exploration of unvisited arms first.
	for _, p := range matching {
		if s, ok := u.stats[p.Name()]; !ok || s.pulls == 0 {
			return p
		}
	}

	var best *protocol.Protocol
	bestScore := math.Inf(-1)
	for _, p := range matching {
		s := u.stats[p.Name()]
		score := s.mean() + u.c*math.Sqrt(math.Log(float64(u.totalPulls))/float64(s.pulls))
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	return best
}

// Update implements Strategy.
func (u *UCB1) Update(name string, reward float64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.stats[name]
	if !ok {
		s = &armStats{}
		u.stats[name] = s
	}
	s.pulls++
	s.sum += reward
}

// Reset implements Strategy.
func (u *UCB1) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.totalPulls = 0
	u.stats = make(map[string]*armStats)
}
