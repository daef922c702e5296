package providers

import (
	"fmt"

	"github.com/savo-ai/savo/internal/llm"
)

// NewProvider creates an LLM provider from its configuration.
func NewProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	switch cfg.Type {
	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg)

	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg)

	case llm.ProviderOllama:
		return NewOllamaProvider(cfg)

	case llm.ProviderMock:
		return NewMockProvider(RespondWith("{}")), nil

	default:
		return nil, llm.NewInvalidRequestError(fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}

// BuildRegistry constructs every configured provider and registers it under
// its configuration identifier. Construction failures surface immediately;
// a half-built registry is never returned.
func BuildRegistry(configs map[string]llm.ProviderConfig) (*llm.DefaultRegistry, error) {
	registry := llm.NewRegistry()
	for id, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		provider, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(id, provider); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
