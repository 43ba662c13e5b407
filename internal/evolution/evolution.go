// Package evolution spawns mutated variants of underperforming protocols.
//
// Mutants are returned to the caller, never auto-registered; the
// improvement loop decides whether a variant enters the population.
package evolution

import (
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// Defaults for the mutation rule.
const (
	// DefaultThreshold is the reward below which a protocol is mutated.
	DefaultThreshold = 2.0

	// DefaultNoise is the half-width of the uniform reward perturbation.
	DefaultNoise = 0.5

	// MutantSuffix is appended to a mutated protocol's name.
	MutantSuffix = "_mutant"
)

// Evolver mutates low-reward protocols. Safe for concurrent use: the
// scheduler and the API can both trigger cycles, and rand.Rand is not.
type Evolver struct {
	threshold float64
	noise     float64
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEvolver creates an evolver. A nil rng gets a time-seeded source;
// tests inject a fixed seed for reproducibility.
func NewEvolver(threshold, noise float64, rng *rand.Rand, logger *zap.Logger) *Evolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if noise <= 0 {
		noise = DefaultNoise
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evolver{
		threshold: threshold,
		noise:     noise,
		rng:       rng,
		logger:    logger,
	}
}

// Evolve clones every protocol whose reward is below the threshold. Each
// clone gets a derived name, a reward perturbed by uniform noise in
// [-noise, +noise] clamped to bounds, and a zeroed execution counter.
//
// taken reports whether a candidate name is already in use (registry
// membership plus anything the caller has pending); names are also
// collision-checked within the batch.
func (e *Evolver) Evolve(protocols []*protocol.Protocol, taken func(name string) bool) []*protocol.Protocol {
	e.mu.Lock()
	defer e.mu.Unlock()

	var mutants []*protocol.Protocol
	batch := make(map[string]bool)

	inUse := func(name string) bool {
		if batch[name] {
			return true
		}
		return taken != nil && taken(name)
	}

	for _, p := range protocols {
		if p.Reward() >= e.threshold {
			continue
		}

		name := e.mutantName(p.Name(), inUse)
		perturbed := p.Reward() + (e.rng.Float64()*2-1)*e.noise
		mutant := p.Clone(name, perturbed)
		batch[name] = true
		mutants = append(mutants, mutant)

		e.logger.Info("protocol mutated",
			zap.String("parent", p.Name()),
			zap.String("mutant", name),
			zap.Float64("parent_reward", p.Reward()),
			zap.Float64("mutant_reward", mutant.Reward()),
		)
	}
	return mutants
}

// mutantName derives a free name from the parent's, suffixing a counter on
// collision.
func (e *Evolver) mutantName(parent string, inUse func(string) bool) string {
	name := parent + MutantSuffix
	if !inUse(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%s_%d", parent, MutantSuffix, i)
		if !inUse(candidate) {
			return candidate
		}
	}
}
