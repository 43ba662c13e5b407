package manifest

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
	"github.com/fyrsmithlabs/protocold/internal/registry"
)

// Manager reconciles a registry with a manifest. Only protocols the manager
// itself registered are ever deregistered, so protocols added at runtime
// (including evolution mutants) survive reloads.
type Manager struct {
	registry *registry.Registry
	logger   *zap.Logger

	mu      sync.Mutex
	managed map[string]bool
}

// NewManager creates a manager over the registry.
func NewManager(reg *registry.Registry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		registry: reg,
		logger:   logger,
		managed:  make(map[string]bool),
	}
}

// Apply brings the registry in line with the manifest: new enabled entries
// are registered, managed entries no longer present (or now disabled) are
// deregistered, and entries already registered keep their learned reward.
//
// All protocols are instantiated before any registry mutation, so a
// manifest that fails validation mid-way leaves the registry untouched.
func (mg *Manager) Apply(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	type pending struct {
		name string
		p    *protocol.Protocol
	}

	var adds []pending
	desired := make(map[string]bool)
	for _, e := range m.Protocols {
		if e.Disabled {
			continue
		}
		name := e.registeredName()
		desired[name] = true

		if mg.registry.Lookup(name) != nil {
			continue
		}
		p, err := protocol.NewBuiltin(e.Builtin, name, e.InitialReward)
		if err != nil {
			return fmt.Errorf("instantiating %s: %w", name, err)
		}
		adds = append(adds, pending{name: name, p: p})
	}

	mg.mu.Lock()
	defer mg.mu.Unlock()

	for _, a := range adds {
		if err := mg.registry.Register(a.p); err != nil {
			return fmt.Errorf("registering %s: %w", a.name, err)
		}
		mg.managed[a.name] = true
		mg.logger.Info("protocol registered from manifest", zap.String("protocol", a.name))
	}

	for name := range mg.managed {
		if desired[name] {
			continue
		}
		if mg.registry.Deregister(name) {
			mg.logger.Info("protocol removed by manifest", zap.String("protocol", name))
		}
		delete(mg.managed, name)
	}
	return nil
}

// ApplyFile loads the manifest at path and applies it.
func (mg *Manager) ApplyFile(path string) error {
	m, err := Load(path)
	if err != nil {
		return err
	}
	return mg.Apply(m)
}

// Managed returns the names currently under manifest control.
func (mg *Manager) Managed() []string {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	names := make([]string, 0, len(mg.managed))
	for name := range mg.managed {
		names = append(names, name)
	}
	return names
}
