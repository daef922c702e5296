package llm

import "context"

// Provider defines the interface that all LLM backends must implement.
// It provides a unified abstraction for requesting schema-bound structured
// output from different LLM services (Anthropic Claude, OpenAI GPT, local
// models, and the deterministic mock used in tests).
//
// A Provider holds no per-call state: each Generate call is an independent
// network operation. Real backends own their internal rate-limit retry loop
// (bounded exponential backoff) and surface a rate-limit error only once that
// budget is exhausted; transport failures and 5xx responses are surfaced
// immediately and classified via the error codes in errors.go.
type Provider interface {
	// Name returns the provider name (e.g., "anthropic", "openai", "mock")
	Name() string

	// Generate sends one structured-output request and returns the raw
	// payload text. The request's Timeout bounds each network attempt;
	// ctx cancellation aborts the call, including any backoff wait.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}
