package providers

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/savo-ai/savo/internal/llm"
)

// OpenAIProvider implements llm.Provider for OpenAI's GPT models through
// langchaingo. The SDK path does not expose raw HTTP status codes, so
// failures are classified from error message content via llm.TranslateError;
// rate limits found that way are retried under the provider's retry policy
// like any other backend.
type OpenAIProvider struct {
	client *openai.LLM
	model  string
	retry  llm.RetryPolicy
}

// NewOpenAIProvider creates a new OpenAI provider from configuration.
// The API key falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(cfg llm.ProviderConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("openai", nil)
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("openai", err)
	}

	return &OpenAIProvider{
		client: client,
		model:  cfg.Model,
		retry:  cfg.Retry,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate sends one structured-output request in JSON mode.
func (p *OpenAIProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
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
			return nil, llm.TranslateError("openai", err)
		}

		raw, err := payloadFromResponse("openai", resp)
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

var _ llm.Provider = (*OpenAIProvider)(nil)
