package providers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry holds one client per provider. Personas that name the same
// provider share its client.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderType]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderType]Provider)}
}

// Register adds provider under providerType. A provider type can only be
// registered once.
func (r *Registry) Register(providerType ProviderType, provider Provider) error {
	if err := provider.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid provider config for %s: %w", providerType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[providerType]; ok {
		return fmt.Errorf("provider already registered: %s", providerType)
	}
	r.providers[providerType] = provider
	return nil
}

// Connect creates the client for providerType and registers it. baseURL
// is ignored by providers without an endpoint override.
func (r *Registry) Connect(ctx context.Context, providerType ProviderType, base BaseConfig, baseURL string) error {
	var (
		provider Provider
		err      error
	)
	switch providerType {
	case ProviderTypeAnthropic:
		provider, err = NewAnthropicProvider(AnthropicConfig{BaseConfig: base, BaseURL: baseURL})
	case ProviderTypeOpenAI:
		provider, err = NewOpenAIProvider(OpenAIConfig{BaseConfig: base, BaseURL: baseURL})
	case ProviderTypeGoogle:
		provider, err = NewGoogleProvider(ctx, GoogleConfig{BaseConfig: base})
	default:
		return fmt.Errorf("unsupported provider %q", providerType)
	}
	if err != nil {
		return fmt.Errorf("provider %s: %w", providerType, err)
	}
	if err := r.Register(providerType, provider); err != nil {
		provider.Close()
		return err
	}
	return nil
}

func (r *Registry) Get(providerType ProviderType) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("provider not registered: %s", providerType)
	}
	return provider, nil
}

func (r *Registry) Has(providerType ProviderType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[providerType]
	return ok
}

// Available returns the registered provider types, sorted.
func (r *Registry) Available() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ProviderType, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Close closes and forgets every registered provider. Closing twice is a
// no-op.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	clear(r.providers)
	return errors.Join(errs...)
}
