package evolution

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

func makeProtocol(t *testing.T, name string, reward float64) *protocol.Protocol {
	t.Helper()
	p, err := protocol.New(name,
		protocol.MatcherFunc(func(protocol.Context) bool { return true }),
		protocol.ActionFunc(func(protocol.Context) (string, error) { return "", nil }),
		protocol.WithInitialReward(reward),
	)
	require.NoError(t, err)
	return p
}

func TestEvolve_OnlyBelowThreshold(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(1)), zap.NewNop())
	protocols := []*protocol.Protocol{
		makeProtocol(t, "weak", 1.0),
		makeProtocol(t, "ok", 2.5),
		makeProtocol(t, "weaker", 0.5),
	}

	mutants := e.Evolve(protocols, nil)
	require.Len(t, mutants, 2)

	for _, m := range mutants {
		assert.True(t, strings.HasSuffix(m.Name(), MutantSuffix), m.Name())
	}
	assert.Equal(t, "weak_mutant", mutants[0].Name())
	assert.Equal(t, "weaker_mutant", mutants[1].Name())
}

func TestEvolve_RewardWithinNoiseBounds(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(2)), zap.NewNop())

	for _, orig := range []float64{1.0, 0.2, 1.9} {
		protocols := []*protocol.Protocol{makeProtocol(t, "p", orig)}
		for i := 0; i < 100; i++ {
			mutants := e.Evolve(protocols, nil)
			require.Len(t, mutants, 1)

			r := mutants[0].Reward()
			assert.GreaterOrEqual(t, r, math.Max(protocol.RewardMin, orig-0.5))
			assert.LessOrEqual(t, r, math.Min(protocol.RewardMax, orig+0.5))
		}
	}
}

func TestEvolve_MutantExecutionsReset(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(3)), zap.NewNop())
	p := makeProtocol(t, "p", 1.0)
	for i := 0; i < 4; i++ {
		_, _ = p.Execute(protocol.Context{})
	}

	mutants := e.Evolve([]*protocol.Protocol{p}, nil)
	require.Len(t, mutants, 1)
	assert.Equal(t, uint64(0), mutants[0].Executions())
}

func TestEvolve_NameCollisionGetsCounterSuffix(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(4)), zap.NewNop())
	p := makeProtocol(t, "p", 1.0)

	taken := func(name string) bool {
		return name == "p_mutant" || name == "p_mutant_2"
	}

	mutants := e.Evolve([]*protocol.Protocol{p}, taken)
	require.Len(t, mutants, 1)
	assert.Equal(t, "p_mutant_3", mutants[0].Name())
}

func TestEvolve_BatchInternalCollision(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(5)), zap.NewNop())
	// Two distinct parents whose derived names collide.
	protocols := []*protocol.Protocol{
		makeProtocol(t, "p", 1.0),
		makeProtocol(t, "p_mutant", 1.0),
	}
	// The first parent produces "p_mutant"... which is also the second
	// parent's own name in the registry.
	taken := func(name string) bool { return name == "p" || name == "p_mutant" }

	mutants := e.Evolve(protocols, taken)
	require.Len(t, mutants, 2)
	assert.Equal(t, "p_mutant_2", mutants[0].Name())
	assert.Equal(t, "p_mutant_mutant", mutants[1].Name())
}

func TestEvolve_FixedSeedReproducible(t *testing.T) {
	run := func() []float64 {
		e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(42)), zap.NewNop())
		protocols := []*protocol.Protocol{
			makeProtocol(t, "a", 1.0),
			makeProtocol(t, "b", 0.5),
		}
		var out []float64
		for _, m := range e.Evolve(protocols, nil) {
			out = append(out, m.Reward())
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestEvolve_ConcurrentCycles(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(9)), zap.NewNop())
	protocols := []*protocol.Protocol{
		makeProtocol(t, "a", 1.0),
		makeProtocol(t, "b", 0.5),
	}

	// The scheduler and the API can trigger cycles at the same time; the
	// shared random source must stay consistent across them.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				for _, m := range e.Evolve(protocols, nil) {
					r := m.Reward()
					assert.GreaterOrEqual(t, r, 0.0)
					assert.LessOrEqual(t, r, 1.5)
				}
			}
		}()
	}
	wg.Wait()
}

func TestEvolve_NothingBelowThreshold(t *testing.T) {
	e := NewEvolver(2.0, 0.5, rand.New(rand.NewSource(6)), zap.NewNop())
	mutants := e.Evolve([]*protocol.Protocol{makeProtocol(t, "fine", 3.0)}, nil)
	assert.Empty(t, mutants)
}
