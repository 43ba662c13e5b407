package protocol

import (
	"errors"
	"fmt"
	"sync"
)

// Reward bounds. Every reward mutation clamps into this range.
const (
	RewardMin = 0.0
	RewardMax = 5.0

	// DefaultInitialReward is the reward a protocol starts with when the
	// caller does not specify one.
	DefaultInitialReward = 3.0
)

// Errors for protocol construction.
var (
	ErrEmptyName  = errors.New("protocol name cannot be empty")
	ErrNilMatcher = errors.New("protocol matcher cannot be nil")
	ErrNilAction  = errors.New("protocol action cannot be nil")
)

// Matcher decides whether a protocol applies to a context.
// Implementations must be side-effect-free.
type Matcher interface {
	Match(ctx Context) bool
}

// Action produces the protocol's result for a context. The selection core
// treats results as opaque; only the caller invokes actions.
type Action interface {
	Execute(ctx Context) (string, error)
}

// Protocol is a named behavior unit with a learned performance score.
//
// Reward and execution count are guarded by an internal mutex so that
// feedback, improvement cycles, and snapshot reads can interleave safely.
// The reward is clamped to [RewardMin, RewardMax] after every update, and
// the execution counter only ever increases.
type Protocol struct {
	name    string
	matcher Matcher
	action  Action

	mu         sync.RWMutex
	reward     float64
	executions uint64
}

// Option configures a Protocol at construction time.
type Option func(*Protocol)

// WithInitialReward sets the starting reward. Values outside [0, 5] are
// clamped.
func WithInitialReward(reward float64) Option {
	return func(p *Protocol) {
		p.reward = ClampReward(reward)
	}
}

// New creates a protocol with the given name, predicate, and action.
func New(name string, matcher Matcher, action Action, opts ...Option) (*Protocol, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if matcher == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilMatcher, name)
	}
	if action == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilAction, name)
	}

	p := &Protocol{
		name:    name,
		matcher: matcher,
		action:  action,
		reward:  DefaultInitialReward,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the protocol's unique name.
func (p *Protocol) Name() string {
	return p.name
}

// Reward returns the current reward score.
func (p *Protocol) Reward() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reward
}

// Executions returns how many times the protocol has been executed.
func (p *Protocol) Executions() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.executions
}

// Matches evaluates the match predicate against ctx. A panicking predicate
// is reported as a non-match together with the recovered error; it never
// propagates to the caller.
func (p *Protocol) Matches(ctx Context) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("predicate for %q panicked: %v", p.name, r)
		}
	}()
	return p.matcher.Match(ctx), nil
}

// Execute runs the protocol's action and increments the execution counter.
// Action errors are returned to the caller; the counter increments either
// way since an attempt was made.
func (p *Protocol) Execute(ctx Context) (string, error) {
	p.mu.Lock()
	p.executions++
	p.mu.Unlock()

	return p.action.Execute(ctx)
}

// SetReward replaces the reward, clamping into [RewardMin, RewardMax].
// It returns the clamped value actually stored.
func (p *Protocol) SetReward(reward float64) float64 {
	clamped := ClampReward(reward)
	p.mu.Lock()
	p.reward = clamped
	p.mu.Unlock()
	return clamped
}

// Clone creates a structural copy with a new name and reward and a zeroed
// execution counter. The matcher and action are shared; they are stateless
// by contract.
func (p *Protocol) Clone(name string, reward float64) *Protocol {
	return &Protocol{
		name:    name,
		matcher: p.matcher,
		action:  p.action,
		reward:  ClampReward(reward),
	}
}

// ClampReward bounds v into [RewardMin, RewardMax].
func ClampReward(v float64) float64 {
	if v < RewardMin {
		return RewardMin
	}
	if v > RewardMax {
		return RewardMax
	}
	return v
}
