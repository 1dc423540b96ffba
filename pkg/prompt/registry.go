package prompt

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
)

// ErrUnknownPreset is returned by Get for a name with no preset.
var ErrUnknownPreset = errors.New("unknown prompt preset")

// overrides is the layout of a prompt overrides file:
//
//	default = "ascii"
//
//	[presets.ascii]
//	persona = "..."
//	rules = ["...", "..."]
type overrides struct {
	Default string                 `toml:"default"`
	Presets map[string]Instruction `toml:"presets"`
}

// Registry resolves preset names to instructions. It is safe for concurrent
// use and can be reloaded while serving.
type Registry struct {
	mu       sync.RWMutex
	presets  map[string]Instruction
	fallback string
}

// NewRegistry returns a registry holding the built-in presets, with
// fallback used for requests that name no preset.
func NewRegistry(fallback string) *Registry {
	if fallback == "" {
		fallback = ASCII
	}
	return &Registry{
		presets:  builtins(),
		fallback: fallback,
	}
}

// Get returns the named preset. An empty name selects the default preset.
func (r *Registry) Get(name string) (Instruction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.fallback
	}
	inst, ok := r.presets[name]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return inst, nil
}

// Default returns the name of the default preset.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Names returns every preset name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.presets))
}

// LoadFile applies overrides from a TOML file on top of the built-in presets.
// Presets in the file replace built-ins of the same name and add new ones.
// The registry is left untouched when the file does not parse.
func (r *Registry) LoadFile(path string) error {
	var o overrides
	if _, err := toml.DecodeFile(path, &o); err != nil {
		return fmt.Errorf("loading prompt overrides %s: %w", path, err)
	}

	presets := builtins()
	for name, inst := range o.Presets {
		if inst.Persona == "" {
			return fmt.Errorf("prompt preset %q in %s has no persona", name, path)
		}
		inst.Name = name
		presets[name] = inst
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fallback := r.fallback
	if o.Default != "" {
		fallback = o.Default
	}
	if _, ok := presets[fallback]; !ok {
		return fmt.Errorf("%w: default %q in %s", ErrUnknownPreset, fallback, path)
	}

	r.presets = presets
	r.fallback = fallback
	return nil
}
