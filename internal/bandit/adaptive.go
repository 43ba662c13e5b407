package bandit

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// DefaultWindow is the number of observations per strategy evaluation
// window.
const DefaultWindow = 50

// Adaptive is the meta-controller. It holds all strategies with independent
// statistics, delegates selection and updates to the active one, and tracks
// each strategy's rolling performance. When the active strategy's window
// fills, strategies are ranked by mean reward over their own most-recent
// window and the best one becomes active; an exact tie keeps the current
// strategy so the controller cannot thrash between equals. A switch takes
// effect on the next Select, never mid-decision.
type Adaptive struct {
	mu         sync.Mutex
	strategies []Strategy
	active     int
	window     int
	perf       map[string][]float64
	logger     *zap.Logger
	metrics    *Metrics

	// lastCtx is the context of the most recent Select, consumed by
	// contextual strategies on Update. Sound because feedback for a
	// selection is applied only after the caller observed that
	// selection's result.
	lastCtx protocol.Context
	haveCtx bool
}

// AdaptiveOption configures the meta-controller.
type AdaptiveOption func(*Adaptive)

// WithWindow sets the evaluation window size.
func WithWindow(window int) AdaptiveOption {
	return func(a *Adaptive) {
		if window > 0 {
			a.window = window
		}
	}
}

// WithActiveStrategy sets the initially active strategy by name. Unknown
// names are ignored.
func WithActiveStrategy(name string) AdaptiveOption {
	return func(a *Adaptive) {
		for i, s := range a.strategies {
			if s.Name() == name {
				a.active = i
				return
			}
		}
	}
}

// WithMetrics attaches bandit metrics.
func WithMetrics(m *Metrics) AdaptiveOption {
	return func(a *Adaptive) { a.metrics = m }
}

// NewAdaptive creates a meta-controller over the given strategies. UCB1 is
// the initially active strategy when present, matching its strong cold-start
// behavior (forced exploration of unvisited arms).
func NewAdaptive(strategies []Strategy, logger *zap.Logger, opts ...AdaptiveOption) *Adaptive {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adaptive{
		strategies: strategies,
		window:     DefaultWindow,
		perf:       make(map[string][]float64),
		logger:     logger,
	}
	for i, s := range strategies {
		if s.Name() == StrategyUCB1 {
			a.active = i
			break
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewDefaultAdaptive wires the four standard strategies with their default
// parameters, sharing one seedable random source.
func NewDefaultAdaptive(rng *rand.Rand, logger *zap.Logger, opts ...AdaptiveOption) *Adaptive {
	strategies := []Strategy{
		NewEpsilonGreedy(DefaultEpsilon, rng),
		NewUCB1(DefaultUCBC),
		NewThompson(DefaultAlphaPrior, DefaultBetaPrior, rng),
		NewLinear(DefaultLearningRate),
	}
	return NewAdaptive(strategies, logger, opts...)
}

// ActiveStrategy returns the name of the currently active strategy.
func (a *Adaptive) ActiveStrategy() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.strategies[a.active].Name()
}

// Select delegates to the active strategy and remembers the context for
// contextual updates.
func (a *Adaptive) Select(ctx protocol.Context, matching []*protocol.Protocol) *protocol.Protocol {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastCtx = ctx
	a.haveCtx = true

	active := a.strategies[a.active]
	selected := active.Select(ctx, matching)

	if a.metrics != nil {
		a.metrics.RecordSelection(active.Name(), selected != nil)
	}
	return selected
}

// Update delegates the reward to the active strategy's update rule and
// appends it to the strategy's rolling performance record. When the active
// record reaches the window size, strategies are re-ranked.
func (a *Adaptive) Update(name string, rewardValue float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	active := a.strategies[a.active]
	if cs, ok := active.(ContextualStrategy); ok && a.haveCtx {
		cs.UpdateContextual(name, a.lastCtx, rewardValue)
	} else {
		active.Update(name, rewardValue)
	}

	key := active.Name()
	a.perf[key] = append(a.perf[key], rewardValue)
	if len(a.perf[key]) > a.window {
		a.perf[key] = a.perf[key][len(a.perf[key])-a.window:]
	}

	if len(a.perf[key]) >= a.window {
		a.evaluate()
	}
}

// evaluate re-ranks strategies by mean reward over their most-recent
// windows and switches to the best. Called with a.mu held.
func (a *Adaptive) evaluate() {
	current := a.strategies[a.active].Name()

	bestIdx := a.active
	bestMean, ok := a.windowMean(current)
	if !ok {
		// No ranking is computable; keep the current strategy.
		return
	}

	for i, s := range a.strategies {
		if i == a.active {
			continue
		}
		mean, ok := a.windowMean(s.Name())
		if !ok {
			continue
		}
		// Strict > keeps the current strategy on an exact tie.
		if mean > bestMean {
			bestMean = mean
			bestIdx = i
		}
	}

	if bestIdx != a.active {
		next := a.strategies[bestIdx].Name()
		a.logger.Info("switching bandit strategy",
			zap.String("from", current),
			zap.String("to", next),
			zap.Float64("mean_reward", bestMean),
		)
		if a.metrics != nil {
			a.metrics.RecordSwitch(current, next)
		}
		a.active = bestIdx
	}

	// Drain the incoming active strategy's window so the next evaluation
	// happens only after a full window of fresh observations.
	a.perf[a.strategies[a.active].Name()] = nil
}

// windowMean returns the mean over a strategy's recorded window.
func (a *Adaptive) windowMean(name string) (float64, bool) {
	rewards := a.perf[name]
	if len(rewards) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range rewards {
		sum += r
	}
	return sum / float64(len(rewards)), true
}

// Reset discards every strategy's statistics and performance records.
func (a *Adaptive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.strategies {
		s.Reset()
	}
	a.perf = make(map[string][]float64)
	a.haveCtx = false
}
