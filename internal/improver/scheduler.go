package improver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CycleRunner runs the periodic maintenance cycles. Implemented by the
// selector service.
type CycleRunner interface {
	RunImprovementCycle(ctx context.Context) []Report
	RunEvolutionCycle(ctx context.Context) (int, error)
}

// Scheduler drives improvement and evolution cycles on a fixed interval.
//
// The selection core itself has no threads; this is the service loop that
// invokes it at cycle boundaries. Start/Stop manage a single background
// goroutine with panic recovery so one bad cycle cannot kill the loop.
type Scheduler struct {
	interval    time.Duration
	evolveEvery int
	runner      CycleRunner
	logger      *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the time between improvement cycles. Default one hour.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithEvolveEvery runs an evolution cycle after every n improvement
// cycles. Zero disables evolution. Default 5.
func WithEvolveEvery(n int) SchedulerOption {
	return func(s *Scheduler) { s.evolveEvery = n }
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(runner CycleRunner, logger *zap.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("cycle runner cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		interval:    time.Hour,
		evolveEvery: 5,
		runner:      runner,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background cycle loop. Starting a running scheduler
// is an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.stopCh = make(chan struct{})
	s.running = true

	s.logger.Info("improvement scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("evolve_every", s.evolveEvery),
	)
	go s.run()
	return nil
}

// Stop signals the loop to exit. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info("improvement scheduler stopped")
}

func (s *Scheduler) run() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler goroutine panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cycles := 0
	for {
		select {
		case <-ticker.C:
			s.safeCycle(&cycles)
		case <-s.stopCh:
			return
		}
	}
}

// safeCycle runs one scheduled pass with panic recovery.
func (s *Scheduler) safeCycle(cycles *int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked, continuing scheduler",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reports := s.runner.RunImprovementCycle(ctx)
	s.logger.Info("improvement cycle completed", zap.Int("protocols", len(reports)))

	*cycles++
	if s.evolveEvery > 0 && *cycles%s.evolveEvery == 0 {
		registered, err := s.runner.RunEvolutionCycle(ctx)
		if err != nil {
			s.logger.Error("evolution cycle failed", zap.Error(err))
			return
		}
		s.logger.Info("evolution cycle completed", zap.Int("mutants_registered", registered))
	}
}
