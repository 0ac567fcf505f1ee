package providers

import (
	"fmt"
	"sort"

	"github.com/04arvind/newla/pkg/config"
)

// Registry holds one client per configured backend, built once at startup.
// Lookups after construction never allocate new clients.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry constructs clients for every provider with credentials in cfg.
// The configured default provider must be constructible.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		providers:   make(map[string]Provider),
		defaultName: cfg.DefaultProvider,
	}

	if pc := cfg.Providers.Claude; pc.APIKey != "" {
		p, err := NewClaudeProvider(pc.APIKey, pc.Model)
		if err != nil {
			return nil, err
		}
		r.providers[p.Name()] = p
	}
	if pc := cfg.Providers.OpenAI; pc.APIKey != "" {
		p, err := NewOpenAIProvider(pc.APIKey, pc.Model, pc.BaseURL)
		if err != nil {
			return nil, err
		}
		r.providers[p.Name()] = p
	}

	if _, ok := r.providers[r.defaultName]; !ok {
		return nil, providerErrf(r.defaultName, "default provider is not configured (missing API key?)")
	}
	return r, nil
}

// Get returns the named provider, or the default when name is empty.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s (configured: %v)", name, r.Names())
	}
	return p, nil
}

// Default returns the default provider.
func (r *Registry) Default() Provider {
	return r.providers[r.defaultName]
}

// Names lists configured provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
