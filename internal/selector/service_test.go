package selector

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/protocold/internal/bandit"
	"github.com/fyrsmithlabs/protocold/internal/episodic"
	"github.com/fyrsmithlabs/protocold/internal/evolution"
	"github.com/fyrsmithlabs/protocold/internal/improver"
	"github.com/fyrsmithlabs/protocold/internal/protocol"
	"github.com/fyrsmithlabs/protocold/internal/registry"
)

func newService(t *testing.T, sink episodic.Sink) (*Service, *registry.Registry) {
	t.Helper()

	reg := registry.New(nil)
	svc, err := New(Options{
		Registry: reg,
		Bandit:   bandit.NewDefaultAdaptive(rand.New(rand.NewSource(42)), nil),
		Evolver:  evolution.NewEvolver(0, 0, rand.New(rand.NewSource(43)), nil),
		Sink:     sink,
	})
	require.NoError(t, err)
	return svc, reg
}

func addProtocol(t *testing.T, reg *registry.Registry, name, emotion string, reward float64) *protocol.Protocol {
	t.Helper()

	p, err := protocol.New(name,
		protocol.FieldMatcher{Field: protocol.FieldEmotion, Values: []string{emotion}},
		protocol.ActionFunc(func(protocol.Context) (string, error) {
			return "handled by " + name, nil
		}),
		protocol.WithInitialReward(reward),
	)
	require.NoError(t, err)
	require.NoError(t, reg.Register(p))
	return p
}

func TestNew_RequiresRegistryAndBandit(t *testing.T) {
	_, err := New(Options{Bandit: bandit.NewDefaultAdaptive(nil, nil)})
	assert.Error(t, err)

	_, err = New(Options{Registry: registry.New(nil)})
	assert.Error(t, err)
}

func TestHandle_ExecutesMatchingProtocol(t *testing.T) {
	sink := episodic.NewMemorySink()
	svc, reg := newService(t, sink)
	addProtocol(t, reg, "emotional_comfort", "sad", 3.0)

	outcome, err := svc.Handle(context.Background(), protocol.Context{Emotion: "sad"})
	require.NoError(t, err)
	assert.Equal(t, "emotional_comfort", outcome.Protocol)
	assert.Equal(t, "handled by emotional_comfort", outcome.Response)
	assert.Equal(t, bandit.StrategyUCB1, outcome.Strategy)

	// The episode lands in the sink once in-flight writes drain.
	require.NoError(t, svc.Close())
	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "emotional_comfort", records[0].Protocol)
	assert.Equal(t, "sad", records[0].Context.Emotion)
}

func TestHandle_NoMatch(t *testing.T) {
	svc, reg := newService(t, nil)
	addProtocol(t, reg, "emotional_comfort", "sad", 3.0)

	_, err := svc.Handle(context.Background(), protocol.Context{Emotion: "happy"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestFeedback_MovesRewardByEMA(t *testing.T) {
	svc, reg := newService(t, nil)
	p := addProtocol(t, reg, "creative_support", "happy", 3.0)

	res, err := svc.Feedback("creative_support", 5.0)
	require.NoError(t, err)

	// 0.3*5 + 0.7*3 = 3.6
	assert.InDelta(t, 3.6, res.Reward, 1e-9)
	assert.InDelta(t, 3.6, p.Reward(), 1e-9)
	assert.Equal(t, 5.0, res.Score)
}

func TestFeedback_ClampsScore(t *testing.T) {
	svc, reg := newService(t, nil)
	addProtocol(t, reg, "creative_support", "happy", 3.0)

	res, err := svc.Feedback("creative_support", 99.0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Score)

	res, err = svc.Feedback("creative_support", -3.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
}

func TestFeedback_UnknownProtocol(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Feedback("nope", 3.0)
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestRunImprovementCycle(t *testing.T) {
	svc, reg := newService(t, nil)
	strong := addProtocol(t, reg, "strong", "happy", 4.5)
	for i := 0; i < 10; i++ {
		_, err := strong.Execute(protocol.Context{})
		require.NoError(t, err)
	}

	reports := svc.RunImprovementCycle(context.Background())
	require.Len(t, reports, 1)
	assert.Equal(t, improver.TierExcellent, reports[0].Tier)
	assert.InDelta(t, 4.95, strong.Reward(), 1e-9)
}

func TestRunEvolutionCycle_RegistersMutants(t *testing.T) {
	svc, reg := newService(t, nil)
	addProtocol(t, reg, "weak", "sad", 1.0)
	addProtocol(t, reg, "fine", "happy", 4.0)

	registered, err := svc.RunEvolutionCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, registered)

	mutant := reg.Lookup("weak" + evolution.MutantSuffix)
	require.NotNil(t, mutant)
	assert.Zero(t, mutant.Executions())

	// A second cycle still finds the weak parent (and possibly the mutant)
	// below threshold and derives fresh collision-free names.
	registered, err = svc.RunEvolutionCycle(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, registered, 1)
	for name := range reg.Snapshot() {
		if strings.Contains(name, evolution.MutantSuffix) {
			assert.NotNil(t, reg.Lookup(name))
		}
	}
}

func TestSnapshot(t *testing.T) {
	svc, reg := newService(t, nil)
	addProtocol(t, reg, "a", "happy", 2.0)
	addProtocol(t, reg, "b", "sad", 4.0)

	stats, strategy := svc.Snapshot()
	require.Len(t, stats, 2)
	assert.Equal(t, 2.0, stats["a"].Reward)
	assert.Equal(t, 4.0, stats["b"].Reward)
	assert.Equal(t, bandit.StrategyUCB1, strategy)
}

func TestHandleAndEvolutionCycleConcurrently(t *testing.T) {
	svc, reg := newService(t, nil)
	addProtocol(t, reg, "emotional_comfort", "sad", 3.0)
	addProtocol(t, reg, "weak", "sad", 1.0)

	// Requests and scheduled evolution cycles run on separate goroutines
	// in the daemon; selection and mutation must interleave safely.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = svc.Handle(context.Background(), protocol.Context{Emotion: "sad"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			_, err := svc.RunEvolutionCycle(context.Background())
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	// Every registered protocol still holds a reward within bounds.
	stats, _ := svc.Snapshot()
	for name, st := range stats {
		assert.GreaterOrEqual(t, st.Reward, 0.0, name)
		assert.LessOrEqual(t, st.Reward, 5.0, name)
	}
}

func TestClose_RejectsFurtherWork(t *testing.T) {
	svc, reg := newService(t, episodic.NewMemorySink())
	addProtocol(t, reg, "p", "happy", 3.0)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close()) // idempotent

	_, err := svc.Handle(context.Background(), protocol.Context{Emotion: "happy"})
	assert.ErrorIs(t, err, ErrServiceClosed)

	_, err = svc.Feedback("p", 3.0)
	assert.ErrorIs(t, err, ErrServiceClosed)
}
