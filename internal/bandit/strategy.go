package bandit

import (
	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// Strategy names as reported by Name() and used in metrics labels.
const (
	StrategyEpsilonGreedy = "epsilon_greedy"
	StrategyUCB1          = "ucb1"
	StrategyThompson      = "thompson"
	StrategyLinear        = "linear"
)

// Strategy selects one protocol from the matching subset and learns from
// reward feedback.
//
// Select returns nil when matching is empty; that is not an error, the
// caller decides the fallback. Update and Select are serialized internally
// per strategy instance.
type Strategy interface {
	Name() string

	Select(ctx protocol.Context, matching []*protocol.Protocol) *protocol.Protocol

	// Update folds an observed reward into the statistics for the named
	// protocol.
	Update(name string, reward float64)

	// Reset discards all learned statistics. Statistics are never reset
	// implicitly.
	Reset()
}

// ContextualStrategy is implemented by strategies whose update rule needs
// the context the selection was made under.
type ContextualStrategy interface {
	UpdateContextual(name string, ctx protocol.Context, reward float64)
}

// armStats holds running sufficient statistics for one (strategy, protocol)
// pair.
type armStats struct {
	pulls int
	sum   float64
}

func (s *armStats) mean() float64 {
	if s.pulls == 0 {
		return 0
	}
	return s.sum / float64(s.pulls)
}
