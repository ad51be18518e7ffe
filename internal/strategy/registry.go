package strategy

import (
	"sort"
	"sync"

	"github.com/tehqua/QuantFlow/internal/version"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// Factory builds a strategy from its YAML configuration.
type Factory func(config string) (Strategy, error)

// Registry maps strategy names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// NewDefaultRegistry creates a registry with the built-in strategies
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	// Built-ins cannot collide in a fresh registry.
	_ = r.Register(SMACrossoverName, NewSMACrossover)
	_ = r.Register(RSIReversionName, NewRSIReversion)

	return r
}

// Register adds a factory under the given name. Registering a name twice is
// an error.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy name is required")
	}

	if factory == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy factory is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy %q is already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create builds the named strategy from config and verifies that its
// declared API version is compatible with this engine.
func (r *Registry) Create(name, config string) (Strategy, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q is not registered", name)
	}

	s, err := factory(config)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to create strategy %q", name)
	}

	if err := version.CheckStrategyCompatibility(version.StrategyAPIVersion, s.APIVersion()); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeVersionMismatch, err, "strategy %q is not compatible with this engine", name)
	}

	return s, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
