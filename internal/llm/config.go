package llm

import (
	"fmt"
	"strings"

	"github.com/savo-ai/savo/internal/types"
)

// ProviderType represents the type of LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
	ProviderMock      ProviderType = "mock"
)

// ProviderConfig contains configuration for a specific LLM backend.
// Providers are declared in the process configuration keyed by identifier and
// resolved once at orchestrator construction; nothing selects a provider by
// free-text at runtime.
type ProviderConfig struct {
	Type   ProviderType `yaml:"type"`
	APIKey string       `yaml:"api_key"`
	// BaseURL overrides the backend endpoint. Empty uses the backend default.
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Retry overrides the internal rate-limit retry policy. Zero fields use defaults.
	Retry RetryPolicy `yaml:"retry"`
}

// Validate performs validation on the ProviderConfig.
func (p *ProviderConfig) Validate() error {
	switch p.Type {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderMock:
	case "":
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "provider type cannot be empty")
	default:
		return types.NewError(
			types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("invalid provider type '%s', must be one of: anthropic, openai, ollama, mock", p.Type),
		)
	}

	// Local and mock backends need no credentials.
	if p.Type == ProviderAnthropic || p.Type == ProviderOpenAI {
		if p.Model == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED, "model cannot be empty for "+string(p.Type))
		}
	}

	return nil
}

// NormalizeProviderName normalizes provider identifiers for consistent lookup.
func NormalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
