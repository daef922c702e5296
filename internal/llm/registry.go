package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/savo-ai/savo/internal/types"
)

// Registry manages provider registration and lookup. It provides a
// centralized, thread-safe registry keyed by provider identifier; the
// orchestrator resolves its primary and optional fallback provider here once
// at construction time.
type Registry interface {
	// Register registers a provider under the given identifier.
	// Returns ErrProviderAlreadyExists if the identifier is taken.
	Register(id string, provider Provider) error

	// Get retrieves a provider by identifier.
	// Returns ErrProviderNotFound if no provider is registered under id.
	Get(id string) (Provider, error)

	// List returns the identifiers of all registered providers, sorted.
	List() []string
}

// DefaultRegistry implements Registry with a sync.RWMutex-protected map.
type DefaultRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		providers: make(map[string]Provider),
	}
}

// Register registers a provider under the given identifier.
func (r *DefaultRegistry) Register(id string, provider Provider) error {
	if provider == nil {
		return types.NewError(ErrProviderInvalidInput, "provider cannot be nil")
	}

	id = NormalizeProviderName(id)
	if id == "" {
		return types.NewError(ErrProviderInvalidInput, "provider identifier cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; exists {
		return types.NewError(ErrProviderAlreadyExists, fmt.Sprintf("provider %q already registered", id))
	}

	r.providers[id] = provider
	return nil
}

// Get retrieves a provider by identifier.
func (r *DefaultRegistry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[NormalizeProviderName(id)]
	if !exists {
		return nil, types.NewError(ErrProviderNotFound, fmt.Sprintf("provider %q not found", id))
	}
	return provider, nil
}

// List returns the identifiers of all registered providers, sorted
// alphabetically for consistent ordering.
func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
