package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/savo-ai/savo/internal/llm"
)

const (
	defaultAnthropicAPIURL = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion    = "2023-06-01"

	// resultToolName is the forced tool whose input schema is the output
	// schema; the tool call arguments ARE the structured payload.
	resultToolName = "emit_result"

	defaultAttemptTimeout = 60 * time.Second
	defaultMaxTokens      = 4096
)

// AnthropicProvider is a direct HTTP client for Anthropic's Messages API.
// It uses tool_choice to force a single tool whose input schema is the target
// output schema, which guarantees structured JSON output. A direct client is
// used instead of an SDK wrapper because structured output needs tool_choice
// and rate-limit handling needs the raw HTTP status and Retry-After header.
type AnthropicProvider struct {
	apiKey     string
	apiURL     string
	model      string
	retry      llm.RetryPolicy
	httpClient *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider from configuration.
// The API key falls back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicProvider(cfg llm.ProviderConfig) (*AnthropicProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("anthropic", nil)
	}

	apiURL := defaultAnthropicAPIURL
	if cfg.BaseURL != "" {
		apiURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}

	return &AnthropicProvider{
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      cfg.Model,
		retry:      cfg.Retry,
		httpClient: &http.Client{},
	}, nil
}

// Anthropic API request/response types

type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicContentPart `json:"content"`
}

type anthropicContentPart struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID         string                 `json:"id"`
	Role       string                 `json:"role"`
	Content    []anthropicContentPart `json:"content"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason"`
	Usage      anthropicUsage         `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Generate sends one structured-output request. Rate-limit responses are
// retried internally under the provider's retry policy before a rate-limit
// error surfaces; every other failure class surfaces immediately.
func (p *AnthropicProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, llm.NewInvalidRequestError(err.Error())
	}

	anthropicReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	return p.retry.Do(ctx, func(ctx context.Context) (*llm.GenerateResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		body, err := p.doRequest(attemptCtx, ctx, anthropicReq)
		if err != nil {
			return nil, err
		}
		return p.parseResponse(body)
	})
}

// buildRequest translates the uniform message list into Anthropic's wire
// shape. Anthropic separates system instructions from the conversation, so
// system messages move into the dedicated system field.
func (p *AnthropicProvider) buildRequest(req llm.GenerateRequest) (*anthropicRequest, error) {
	var system string
	messages := make([]anthropicMessage, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case llm.RoleUser, llm.RoleAssistant:
			messages = append(messages, anthropicMessage{
				Role: msg.Role.String(),
				Content: []anthropicContentPart{
					{Type: "text", Text: msg.Content},
				},
			})
		}
	}

	schemaJSON, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, llm.NewInvalidRequestError("cannot marshal output schema: " + err.Error())
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	anthropicReq := &anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
		Tools: []anthropicTool{
			{
				Name:        resultToolName,
				Description: "Report the generated result in the required structure.",
				InputSchema: schemaJSON,
			},
		},
		ToolChoice: &anthropicToolChoice{Type: "tool", Name: resultToolName},
	}

	if req.Temperature > 0 {
		temp := req.Temperature
		anthropicReq.Temperature = &temp
	}

	return anthropicReq, nil
}

// doRequest makes one HTTP attempt and classifies the failure precisely:
// 429 (rate limit, fallback-eligible) is distinguished from 5xx, auth
// failures, and transport timeouts. attemptCtx carries the per-attempt
// timeout; parentCtx distinguishes caller cancellation from that timeout.
func (p *AnthropicProvider) doRequest(attemptCtx, parentCtx context.Context, anthropicReq *anthropicRequest) ([]byte, error) {
	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, llm.NewInvalidRequestError("cannot marshal request: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, p.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, llm.NewInvalidRequestError("cannot create HTTP request: " + err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if parentCtx.Err() != nil {
			return nil, llm.NewCanceledError(parentCtx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, llm.NewTimeoutError("request to anthropic timed out")
		}
		return nil, llm.NewNetworkError("request to anthropic failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewNetworkError("cannot read anthropic response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, llm.NewRateLimitError("anthropic", retryAfterHeader(resp))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, llm.NewProviderUnauthorizedError("anthropic", apiError(resp.StatusCode, body))
	case resp.StatusCode >= 500:
		return nil, llm.NewProviderUnavailableError("anthropic", apiError(resp.StatusCode, body))
	default:
		return nil, llm.NewInvalidRequestError(apiError(resp.StatusCode, body).Error())
	}
}

// retryAfterHeader parses the Retry-After header, which carries either delay
// seconds or an HTTP-date.
func retryAfterHeader(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(raw); err == nil {
		if delay := time.Until(at); delay > 0 {
			return delay
		}
	}

	return 0
}

// apiError formats an API error body into a readable error.
func apiError(status int, body []byte) error {
	var errResp anthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("anthropic API error (%d): %s", status, errResp.Error.Message)
	}
	return fmt.Errorf("anthropic API error (%d): %s", status, string(body))
}

// parseResponse extracts the structured payload. The forced tool call input
// is the payload; plain text content is a fallback for backends behind
// compatible proxies that drop tool_choice.
func (p *AnthropicProvider) parseResponse(body []byte) (*llm.GenerateResult, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewParseError("anthropic", err)
	}

	var raw string
	for _, part := range resp.Content {
		switch part.Type {
		case "tool_use":
			if part.Name == resultToolName {
				raw = string(part.Input)
			}
		case "text":
			if raw == "" && part.Text != "" {
				if extracted, err := llm.ExtractJSON(part.Text); err == nil {
					raw = extracted
				}
			}
		}
	}

	if raw == "" {
		return nil, llm.NewParseError("anthropic",
			fmt.Errorf("no tool call in response despite forced tool choice"))
	}

	id := resp.ID
	if id == "" {
		id = uuid.New().String()
	}

	return &llm.GenerateResult{
		ID:         id,
		Model:      resp.Model,
		RawPayload: raw,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
