package improver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	improvements atomic.Int64
	evolutions   atomic.Int64
	panicOnce    atomic.Bool
}

func (f *fakeRunner) RunImprovementCycle(context.Context) []Report {
	if f.panicOnce.CompareAndSwap(true, false) {
		panic("cycle blew up")
	}
	f.improvements.Add(1)
	return nil
}

func (f *fakeRunner) RunEvolutionCycle(context.Context) (int, error) {
	f.evolutions.Add(1)
	return 0, nil
}

func TestNewScheduler_RequiresRunner(t *testing.T) {
	_, err := NewScheduler(nil, nil)
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(&fakeRunner{}, nil, WithInterval(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start must fail")

	s.Stop()
	s.Stop() // idempotent

	// Restart works after a stop.
	require.NoError(t, s.Start())
	s.Stop()
}

func TestScheduler_RunsCyclesOnInterval(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewScheduler(runner, nil,
		WithInterval(10*time.Millisecond),
		WithEvolveEvery(2),
	)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.improvements.Load() >= 4
	}, 2*time.Second, 5*time.Millisecond)

	// Every second improvement cycle triggers an evolution cycle.
	assert.Eventually(t, func() bool {
		return runner.evolutions.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_EvolutionDisabled(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewScheduler(runner, nil,
		WithInterval(5*time.Millisecond),
		WithEvolveEvery(0),
	)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.improvements.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, runner.evolutions.Load())
}

func TestScheduler_SurvivesCyclePanic(t *testing.T) {
	runner := &fakeRunner{}
	runner.panicOnce.Store(true)

	s, err := NewScheduler(runner, nil, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	// The first tick panics; subsequent ticks still run.
	assert.Eventually(t, func() bool {
		return runner.improvements.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}
