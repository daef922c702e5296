package providers

import (
	"context"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/savo-ai/savo/internal/llm"
)

// OllamaProvider implements llm.Provider for local Ollama models through
// langchaingo. Ollama has a JSON output format but no schema enforcement, so
// the schema instruction in the prompt and downstream validation carry the
// full weight of shape correctness.
type OllamaProvider struct {
	client *ollama.LLM
	model  string
	retry  llm.RetryPolicy
}

// NewOllamaProvider creates a new Ollama provider from configuration.
func NewOllamaProvider(cfg llm.ProviderConfig) (*OllamaProvider, error) {
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	opts := []ollama.Option{
		ollama.WithServerURL(serverURL),
		ollama.WithFormat("json"),
	}
	if cfg.Model != "" {
		opts = append(opts, ollama.WithModel(cfg.Model))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}

	return &OllamaProvider{
		client: client,
		model:  cfg.Model,
		retry:  cfg.Retry,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Generate sends one structured-output request with JSON format enabled.
func (p *OllamaProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, llm.NewInvalidRequestError(err.Error())
	}

	messages := toLangchainMessages(withSchemaInstruction(req.Messages, req.Schema))
	callOpts := buildCallOptions(req, p.model)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	return p.retry.Do(ctx, func(ctx context.Context) (*llm.GenerateResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := p.client.GenerateContent(attemptCtx, messages, callOpts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, llm.NewCanceledError(ctx.Err())
			}
			return nil, llm.TranslateError("ollama", err)
		}

		raw, err := payloadFromResponse("ollama", resp)
		if err != nil {
			return nil, err
		}

		model := req.Model
		if model == "" {
			model = p.model
		}

		return &llm.GenerateResult{
			ID:         uuid.New().String(),
			Model:      model,
			RawPayload: raw,
		}, nil
	})
}

var _ llm.Provider = (*OllamaProvider)(nil)
