package selector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/bandit"
	"github.com/fyrsmithlabs/protocold/internal/episodic"
	"github.com/fyrsmithlabs/protocold/internal/evolution"
	"github.com/fyrsmithlabs/protocold/internal/improver"
	"github.com/fyrsmithlabs/protocold/internal/protocol"
	"github.com/fyrsmithlabs/protocold/internal/registry"
	"github.com/fyrsmithlabs/protocold/internal/reward"
)

// Service errors.
var (
	ErrNoMatch         = errors.New("no protocol matches the context")
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrServiceClosed   = errors.New("selector service is closed")
)

// appendTimeout bounds one asynchronous episode write.
const appendTimeout = 10 * time.Second

// Outcome is the result of handling one context.
type Outcome struct {
	Protocol string  `json:"protocol"`
	Strategy string  `json:"strategy"`
	Response string  `json:"response"`
	Reward   float64 `json:"reward"`
}

// FeedbackResult reports the state after one feedback application.
type FeedbackResult struct {
	Protocol string  `json:"protocol"`
	Score    float64 `json:"score"`
	Reward   float64 `json:"reward"`
	Strategy string  `json:"strategy"`
}

// Options configures a Service. Registry and Bandit are required; every
// other dependency has a working default.
type Options struct {
	Registry *registry.Registry
	Bandit   *bandit.Adaptive
	Rewards  *reward.Model
	Improver *improver.Improver
	Evolver  *evolution.Evolver
	Sink     episodic.Sink
	Logger   *zap.Logger
	Metrics  *Metrics
}

// Service orchestrates protocol selection and learning.
type Service struct {
	registry *registry.Registry
	bandit   *bandit.Adaptive
	rewards  *reward.Model
	improver *improver.Improver
	evolver  *evolution.Evolver
	sink     episodic.Sink
	logger   *zap.Logger
	metrics  *Metrics

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a service from opts.
func New(opts Options) (*Service, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Bandit == nil {
		return nil, fmt.Errorf("bandit is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		registry: opts.Registry,
		bandit:   opts.Bandit,
		rewards:  opts.Rewards,
		improver: opts.Improver,
		evolver:  opts.Evolver,
		sink:     opts.Sink,
		logger:   logger,
		metrics:  opts.Metrics,
	}
	if s.rewards == nil {
		s.rewards = reward.NewModel(reward.DefaultAlpha, logger)
	}
	if s.improver == nil {
		s.improver = improver.New(opts.Registry, logger)
	}
	if s.evolver == nil {
		s.evolver = evolution.NewEvolver(evolution.DefaultThreshold, evolution.DefaultNoise, nil, logger)
	}
	if s.sink == nil {
		s.sink = episodic.NopSink{}
	}
	return s, nil
}

// Select picks a protocol for the context without executing it. Returns nil
// when no registered protocol matches.
func (s *Service) Select(pctx protocol.Context) *protocol.Protocol {
	matching := s.registry.Matching(pctx)
	return s.bandit.Select(pctx, matching)
}

// Handle runs the full pipeline for one context: select, execute, and
// record the episode. Returns ErrNoMatch when nothing matches.
func (s *Service) Handle(ctx context.Context, pctx protocol.Context) (*Outcome, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}

	selected := s.Select(pctx)
	if selected == nil {
		if s.metrics != nil {
			s.metrics.RecordRequest(false)
		}
		return nil, ErrNoMatch
	}

	response, err := selected.Execute(pctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRequest(false)
		}
		return nil, fmt.Errorf("executing protocol %s: %w", selected.Name(), err)
	}

	strategy := s.bandit.ActiveStrategy()
	outcome := &Outcome{
		Protocol: selected.Name(),
		Strategy: strategy,
		Response: response,
		Reward:   selected.Reward(),
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(true)
	}
	s.recordEpisode(episodic.NewRecord(pctx, selected.Name(), strategy, response, selected.Reward()))

	s.logger.Debug("protocol handled",
		zap.String("protocol", selected.Name()),
		zap.String("strategy", strategy),
	)
	return outcome, nil
}

// Feedback applies a reward score to a protocol: the protocol's reward moves
// by the exponential moving average and the active strategy's statistics are
// updated with the clamped score. Returns ErrUnknownProtocol when the name
// is not registered.
func (s *Service) Feedback(name string, score float64) (*FeedbackResult, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}

	p := s.registry.Lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, name)
	}

	clamped := protocol.ClampReward(score)
	newReward := s.rewards.Apply(p, score)
	s.bandit.Update(name, clamped)

	if s.metrics != nil {
		s.metrics.RecordFeedback(clamped)
	}
	s.logger.Debug("feedback applied",
		zap.String("protocol", name),
		zap.Float64("score", clamped),
		zap.Float64("reward", newReward),
	)

	return &FeedbackResult{
		Protocol: name,
		Score:    clamped,
		Reward:   newReward,
		Strategy: s.bandit.ActiveStrategy(),
	}, nil
}

// RunImprovementCycle reclassifies every protocol and adjusts rewards.
func (s *Service) RunImprovementCycle(context.Context) []improver.Report {
	reports := s.improver.RunCycle()
	if s.metrics != nil {
		s.metrics.RecordCycle("improvement")
	}
	return reports
}

// RunEvolutionCycle mutates underperforming protocols and registers the
// mutants. Returns the number of mutants registered.
func (s *Service) RunEvolutionCycle(context.Context) (int, error) {
	mutants := s.evolver.Evolve(s.registry.Protocols(), func(name string) bool {
		return s.registry.Lookup(name) != nil
	})

	registered := 0
	for _, m := range mutants {
		if err := s.registry.Register(m); err != nil {
			return registered, fmt.Errorf("registering mutant %s: %w", m.Name(), err)
		}
		registered++
	}

	if s.metrics != nil {
		s.metrics.RecordCycle("evolution")
	}
	if registered > 0 {
		s.logger.Info("evolution cycle registered mutants", zap.Int("count", registered))
	}
	return registered, nil
}

// Snapshot reports current per-protocol statistics and the active strategy.
func (s *Service) Snapshot() (map[string]registry.Stats, string) {
	return s.registry.Snapshot(), s.bandit.ActiveStrategy()
}

// Registry exposes the underlying registry for administrative operations.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// recordEpisode forwards the record to the sink off the request path.
func (s *Service) recordEpisode(rec *episodic.Record) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()

		if err := s.sink.Append(ctx, rec); err != nil {
			s.logger.Warn("episode not persisted",
				zap.String("protocol", rec.Protocol),
				zap.Error(err),
			)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordEpisode()
		}
	}()
}

// Close waits for in-flight episode writes and closes the sink. Further
// Handle and Feedback calls fail with ErrServiceClosed.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.wg.Wait()
	return s.sink.Close()
}
