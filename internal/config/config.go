package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/savo-ai/savo/internal/llm"
	"github.com/savo-ai/savo/internal/orchestrator"
	"github.com/savo-ai/savo/internal/types"
)

// Config is the process configuration: the provider catalog, orchestrator
// selection, and the directories the schema and task registries load from.
// It is read once at startup; there is no reload without a restart.
type Config struct {
	Providers    map[string]llm.ProviderConfig
	Orchestrator orchestrator.Config
	SchemaDir    string
	TaskDir      string
}

// YAML document shapes. Durations are written as strings ("60s", "1m") and
// parsed explicitly, so a malformed value fails loading instead of silently
// meaning nanoseconds.

type configDoc struct {
	Providers    map[string]providerDoc `yaml:"providers"`
	Orchestrator orchestratorDoc        `yaml:"orchestrator"`
	SchemaDir    string                 `yaml:"schema_dir"`
	TaskDir      string                 `yaml:"task_dir"`
}

type providerDoc struct {
	Type    string   `yaml:"type"`
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	Retry   retryDoc `yaml:"retry"`
}

type retryDoc struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffBase string `yaml:"backoff_base"`
	BackoffCap  string `yaml:"backoff_cap"`
}

type orchestratorDoc struct {
	PrimaryProvider  string `yaml:"primary_provider"`
	FallbackProvider string `yaml:"fallback_provider"`
	PerCallTimeout   string `yaml:"per_call_timeout"`
}

// Load reads, parses, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "cannot read config file "+path, err)
	}
	return Parse(data)
}

// Parse parses and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var doc configDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "cannot parse config", err)
	}

	cfg := &Config{
		Providers: make(map[string]llm.ProviderConfig, len(doc.Providers)),
		SchemaDir: doc.SchemaDir,
		TaskDir:   doc.TaskDir,
	}

	for id, p := range doc.Providers {
		retry, err := parseRetry(id, p.Retry)
		if err != nil {
			return nil, err
		}
		pc := llm.ProviderConfig{
			Type:    llm.ProviderType(p.Type),
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Retry:   retry,
		}
		if err := pc.Validate(); err != nil {
			return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("provider %q validation failed", id), err)
		}
		cfg.Providers[id] = pc
	}

	timeout, err := parseDuration("orchestrator.per_call_timeout", doc.Orchestrator.PerCallTimeout)
	if err != nil {
		return nil, err
	}
	cfg.Orchestrator = orchestrator.Config{
		PrimaryProvider:  doc.Orchestrator.PrimaryProvider,
		FallbackProvider: doc.Orchestrator.FallbackProvider,
		PerCallTimeout:   timeout,
	}
	if err := cfg.Orchestrator.Validate(); err != nil {
		return nil, err
	}

	if _, ok := cfg.Providers[cfg.Orchestrator.PrimaryProvider]; !ok {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("primary provider %q not declared in providers", cfg.Orchestrator.PrimaryProvider))
	}
	if fb := cfg.Orchestrator.FallbackProvider; fb != "" {
		if _, ok := cfg.Providers[fb]; !ok {
			return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("fallback provider %q not declared in providers", fb))
		}
	}

	if cfg.SchemaDir == "" {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "schema_dir cannot be empty")
	}
	if cfg.TaskDir == "" {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "task_dir cannot be empty")
	}

	return cfg, nil
}

func parseRetry(providerID string, doc retryDoc) (llm.RetryPolicy, error) {
	base, err := parseDuration(fmt.Sprintf("providers.%s.retry.backoff_base", providerID), doc.BackoffBase)
	if err != nil {
		return llm.RetryPolicy{}, err
	}
	ceiling, err := parseDuration(fmt.Sprintf("providers.%s.retry.backoff_cap", providerID), doc.BackoffCap)
	if err != nil {
		return llm.RetryPolicy{}, err
	}
	if doc.MaxAttempts < 0 {
		return llm.RetryPolicy{}, types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("providers.%s.retry.max_attempts cannot be negative", providerID))
	}
	return llm.RetryPolicy{
		MaxAttempts: doc.MaxAttempts,
		BackoffBase: base,
		BackoffCap:  ceiling,
	}, nil
}

// parseDuration parses an optional duration string. Empty means "use default"
// and parses to zero.
func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, types.WrapError(types.CONFIG_PARSE_FAILED,
			fmt.Sprintf("%s is not a valid duration", field), err)
	}
	if d < 0 {
		return 0, types.NewError(types.CONFIG_VALIDATION_FAILED, field+" cannot be negative")
	}
	return d, nil
}
