package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bedasa/dataport/sdk"
)

// Registry is a threadsafe in memory provider registry
type Registry struct {
	mu        sync.RWMutex
	providers map[string]sdk.Provider
}

var _ sdk.Registry = (*Registry)(nil)

// New returns an empty registry
func New() *Registry {
	return &Registry{providers: make(map[string]sdk.Provider)}
}

// Register adds a provider under its system name. Registering the same name
// twice is an error.
func (r *Registry) Register(p sdk.Provider) error {
	name := p.SystemName()
	if name == "" {
		return fmt.Errorf("provider has no system name")
	}
	if !p.EntityType().Valid() {
		return fmt.Errorf("provider %q has unsupported entity type %q", name, p.EntityType())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider registered under systemName
func (r *Registry) Get(systemName string) (sdk.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[systemName]
	return p, ok
}

// List returns the system names of all registered providers sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
