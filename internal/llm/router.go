package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Router keeps the registered text providers and picks the one the client talks to
type Router struct {
	providers       map[string]Provider
	defaultProvider string
	mu              sync.RWMutex
}

func NewRouter(defaultProvider string) *Router {
	return &Router{
		providers:       make(map[string]Provider),
		defaultProvider: defaultProvider,
	}
}

// RegisterProvider registers a provider under its name. A later registration
// with the same name replaces the earlier one.
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a provider by name; an empty name selects the default
func (r *Router) GetProvider(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}

	return p, nil
}

// Preferred returns the default provider when it has credentials. Otherwise it
// returns the first configured provider by name, and failing that the default
// itself so callers still get fallback content.
func (r *Router) Preferred() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, hasDefault := r.providers[r.defaultProvider]
	if hasDefault && def.IsConfigured() {
		return def, nil
	}

	for _, name := range r.namesLocked() {
		if p := r.providers[name]; p.IsConfigured() {
			return p, nil
		}
	}

	if hasDefault {
		return def, nil
	}
	return nil, fmt.Errorf("provider not found: %s", r.defaultProvider)
}

func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// ProviderInfo is what GET /api/v1/providers reports per provider
type ProviderInfo struct {
	Name       string `json:"name"`
	Default    bool   `json:"default"`
	Configured bool   `json:"configured"`
}

// GetProvidersInfo lists every provider, sorted by name
func (r *Router) GetProvidersInfo() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.namesLocked()
	infos := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, ProviderInfo{
			Name:       name,
			Default:    name == r.defaultProvider,
			Configured: r.providers[name].IsConfigured(),
		})
	}
	return infos
}

func (r *Router) namesLocked() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
