package bandit

import (
	"math"
	"sync"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// DefaultLearningRate is the gradient step size for the linear bandit.
const DefaultLearningRate = 0.1

// Linear is a contextual bandit with one linear model per protocol over the
// fixed feature encoding of the context. Predicted reward is the dot
// product of the protocol's weights with the features; updates take a
// single gradient step towards the observed reward.
type Linear struct {
	mu      sync.Mutex
	lr      float64
	weights map[string][]float64
	stats   map[string]*armStats
}

// NewLinear creates the strategy. A non-positive learning rate falls back
// to DefaultLearningRate.
func NewLinear(lr float64) *Linear {
	if lr <= 0 {
		lr = DefaultLearningRate
	}
	return &Linear{
		lr:      lr,
		weights: make(map[string][]float64),
		stats:   make(map[string]*armStats),
	}
}

// Name implements Strategy.
func (l *Linear) Name() string { return StrategyLinear }

// Select implements Strategy. Protocols without learned weights predict
// zero; ties go to first-seen order.
func (l *Linear) Select(ctx protocol.Context, matching []*protocol.Protocol) *protocol.Protocol {
	if len(matching) == 0 {
		return nil
	}

	features := Features(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	var best *protocol.Protocol
	bestPredicted := math.Inf(-1)
	for _, p := range matching {
		var predicted float64
		if w, ok := l.weights[p.Name()]; ok {
			predicted = dot(w, features)
		}
		if predicted > bestPredicted {
			bestPredicted = predicted
			best = p
		}
	}
	return best
}

// Update implements Strategy. Without the originating context there is no
// feature vector to step against, so only the pull statistics advance; the
// meta-controller routes context-carrying updates to UpdateContextual.
func (l *Linear) Update(name string, reward float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(name, reward)
}

// UpdateContextual implements ContextualStrategy: one gradient step
// weights += lr * (reward - predicted) * features.
func (l *Linear) UpdateContextual(name string, ctx protocol.Context, reward float64) {
	features := Features(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.weights[name]
	if !ok {
		w = make([]float64, FeatureDim)
		l.weights[name] = w
	}

	predicted := dot(w, features)
	step := l.lr * (reward - predicted)
	for i := range w {
		w[i] += step * features[i]
	}

	l.record(name, reward)
}

// Reset implements Strategy.
func (l *Linear) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.weights = make(map[string][]float64)
	l.stats = make(map[string]*armStats)
}

func (l *Linear) record(name string, reward float64) {
	s, ok := l.stats[name]
	if !ok {
		s = &armStats{}
		l.stats[name] = s
	}
	s.pulls++
	s.sum += reward
}

// Predict returns the current predicted reward for a protocol under ctx.
// Exposed for tests and observability.
func (l *Linear) Predict(name string, ctx protocol.Context) float64 {
	features := Features(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.weights[name]
	if !ok {
		return 0
	}
	return dot(w, features)
}
