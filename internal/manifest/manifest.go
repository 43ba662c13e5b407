// Package manifest loads protocol declarations from a YAML file and keeps a
// registry in sync with them, including hot reload on file changes.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// Manifest errors.
var (
	ErrInvalidManifest = errors.New("invalid manifest")
)

// Entry declares one protocol. Builtin names a template from the builtin
// table; Name overrides the registered name.
type Entry struct {
	Name          string  `koanf:"name"`
	Builtin       string  `koanf:"builtin"`
	InitialReward float64 `koanf:"initial_reward"`
	Disabled      bool    `koanf:"disabled"`
}

// registeredName is the name the entry's protocol is registered under.
func (e Entry) registeredName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Builtin
}

// Manifest is a parsed protocol manifest.
type Manifest struct {
	Protocols []Entry `koanf:"protocols"`
}

// Parse reads a manifest from YAML bytes and validates it. A manifest with
// any invalid entry is rejected whole.
func Parse(data []byte) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks every entry. Builtin keys are checked against the builtin
// table and names must be unique within the manifest.
func (m *Manifest) Validate() error {
	builtinKeys := make(map[string]bool)
	for _, spec := range protocol.Builtins() {
		builtinKeys[spec.Key] = true
	}

	seen := make(map[string]bool)
	for i, e := range m.Protocols {
		if e.Builtin == "" {
			return fmt.Errorf("%w: entry %d has no builtin", ErrInvalidManifest, i)
		}
		if !builtinKeys[e.Builtin] {
			return fmt.Errorf("%w: entry %d references unknown builtin %q", ErrInvalidManifest, i, e.Builtin)
		}
		if e.InitialReward < 0 || e.InitialReward > protocol.RewardMax {
			return fmt.Errorf("%w: entry %d initial_reward %v outside [0, %v]", ErrInvalidManifest, i, e.InitialReward, protocol.RewardMax)
		}
		name := e.registeredName()
		if seen[name] {
			return fmt.Errorf("%w: duplicate protocol name %q", ErrInvalidManifest, name)
		}
		seen[name] = true
	}
	return nil
}
