package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrProviderNotFound indicates the provider name is unknown.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotFound indicates the model is not served by the provider.
	ErrModelNotFound = errors.New("model not found")
)

// Provider is one registered backend with its served models.
type Provider struct {
	Client       ChatClient
	Models       []string
	DefaultModel string
}

// ProviderRegistry maps provider names to chat backends and answers
// which models each one serves.
//
// The registry is populated once at startup and read per request, so a
// plain RWMutex is enough.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defName   string
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]Provider)}
}

// Register adds a provider. The first registered provider becomes the
// default; an empty model list is allowed for gateways that accept any
// model name.
func (r *ProviderRegistry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.DefaultModel == "" && len(p.Models) > 0 {
		p.DefaultModel = p.Models[0]
	}
	if r.defName == "" {
		r.defName = name
	}
	r.providers[name] = p
}

// DefaultName returns the name of the default provider, empty when
// nothing is registered.
func (r *ProviderRegistry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defName
}

// Resolve picks the client and concrete model for a request.
//
// An empty provider selects the default provider; an empty model
// selects the provider's default model. A model outside the provider's
// advertised list is rejected, unless the provider advertises none.
func (r *ProviderRegistry) Resolve(provider, model string) (ChatClient, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := provider
	if name == "" {
		name = r.defName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrProviderNotFound, provider)
	}
	if model == "" {
		model = p.DefaultModel
	}
	if len(p.Models) > 0 {
		served := false
		for _, m := range p.Models {
			if m == model {
				served = true
				break
			}
		}
		if !served {
			return nil, "", fmt.Errorf("%w: %q on provider %q", ErrModelNotFound, model, name)
		}
	}
	return p.Client, model, nil
}

// Available reports every provider and the models it serves, for the
// models endpoint.
func (r *ProviderRegistry) Available() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.providers))
	for name, p := range r.providers {
		models := make([]string, len(p.Models))
		copy(models, p.Models)
		sort.Strings(models)
		out[name] = models
	}
	return out
}

// Names returns the registered provider names sorted.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
