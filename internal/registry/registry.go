// Package registry owns the protocol collection.
//
// Protocols are kept in registration order; that order is load-bearing, it
// is the deterministic tie-break for every bandit strategy downstream. All
// membership changes go through the registry's mutex, which is the single
// mutation path required to keep concurrent feedback and improvement cycles
// from losing updates.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// ErrDuplicateProtocol is returned when registering a name that is already
// present. The registry is left unchanged.
var ErrDuplicateProtocol = errors.New("protocol already registered")

// Stats is the observability snapshot for a single protocol.
type Stats struct {
	Reward     float64 `json:"reward"`
	Executions uint64  `json:"executions"`
}

// Registry is an insertion-ordered collection of uniquely named protocols.
type Registry struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	byName  map[string]*protocol.Protocol
	ordered []*protocol.Protocol
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger,
		byName: make(map[string]*protocol.Protocol),
	}
}

// Register adds a protocol. Registering a name that already exists fails
// with ErrDuplicateProtocol and leaves the registry unchanged.
func (r *Registry) Register(p *protocol.Protocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProtocol, p.Name())
	}

	r.byName[p.Name()] = p
	r.ordered = append(r.ordered, p)

	r.logger.Info("protocol registered",
		zap.String("protocol", p.Name()),
		zap.Float64("reward", p.Reward()),
	)
	return nil
}

// Deregister removes a protocol by name. Removing an absent name is a
// no-op; the return value reports whether anything was removed.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; !exists {
		return false
	}

	delete(r.byName, name)
	for i, p := range r.ordered {
		if p.Name() == name {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}

	r.logger.Info("protocol deregistered", zap.String("protocol", name))
	return true
}

// Lookup returns the protocol with the given name, or nil if absent.
func (r *Registry) Lookup(name string) *protocol.Protocol {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Matching evaluates every protocol's predicate against ctx in registration
// order and returns the matching subset. A predicate that panics counts as
// a non-match: it is logged and never propagated, so one broken predicate
// cannot take down selection.
func (r *Registry) Matching(ctx protocol.Context) []*protocol.Protocol {
	snapshot := r.Protocols()

	var matching []*protocol.Protocol
	for _, p := range snapshot {
		matched, err := p.Matches(ctx)
		if err != nil {
			r.logger.Warn("predicate evaluation failed, treating as non-match",
				zap.String("protocol", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if matched {
			matching = append(matching, p)
		}
	}
	return matching
}

// Protocols returns a copy of the protocol list in registration order.
// Selection works on this immutable snapshot; concurrent membership changes
// do not affect an in-flight decision.
func (r *Registry) Protocols() []*protocol.Protocol {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*protocol.Protocol, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered protocols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Snapshot returns per-protocol reward and execution counts for
// observability consumers.
func (r *Registry) Snapshot() map[string]Stats {
	snapshot := r.Protocols()

	out := make(map[string]Stats, len(snapshot))
	for _, p := range snapshot {
		out[p.Name()] = Stats{
			Reward:     p.Reward(),
			Executions: p.Executions(),
		}
	}
	return out
}
