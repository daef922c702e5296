package orchestrator

import (
	"log/slog"
	"time"

	"github.com/savo-ai/savo/internal/types"
)

// DefaultPerCallTimeout bounds each provider network attempt when the
// configuration does not say otherwise.
const DefaultPerCallTimeout = 60 * time.Second

// Config selects the providers and timing for an Orchestrator. Providers are
// referenced by registry identifier and resolved once at construction.
type Config struct {
	// PrimaryProvider is the registry identifier of the provider every
	// invocation dispatches to first.
	PrimaryProvider string `yaml:"primary_provider"`

	// FallbackProvider is the registry identifier of the provider used after
	// the primary exhausts its rate-limit budget. Empty disables fallback;
	// that is a fully supported configuration, not a degraded one.
	FallbackProvider string `yaml:"fallback_provider"`

	// PerCallTimeout bounds each provider network attempt. Zero uses
	// DefaultPerCallTimeout.
	PerCallTimeout time.Duration `yaml:"per_call_timeout"`
}

// Validate performs validation on the Config.
func (c *Config) Validate() error {
	if c.PrimaryProvider == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "primary_provider cannot be empty")
	}
	if c.FallbackProvider == c.PrimaryProvider {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "fallback_provider cannot equal primary_provider")
	}
	if c.PerCallTimeout < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "per_call_timeout cannot be negative")
	}
	return nil
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger sets the logger for orchestrator operations.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}
