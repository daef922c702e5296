package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savo-ai/savo/internal/llm"
	"github.com/savo-ai/savo/internal/schema"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) (*AnthropicProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewAnthropicProvider(llm.ProviderConfig{
		Type:    llm.ProviderAnthropic,
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "claude-test",
		Retry:   llm.RetryPolicy{MaxAttempts: 2, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond},
	})
	require.NoError(t, err)
	return provider, server
}

func toolUseResponse(payload string) string {
	return `{
		"id": "msg_test",
		"model": "claude-test",
		"content": [{"type": "tool_use", "id": "tu_1", "name": "emit_result", "input": ` + payload + `}],
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`
}

func anthropicRequestFor(t *testing.T) llm.GenerateRequest {
	t.Helper()
	return llm.GenerateRequest{
		Messages: []llm.Message{
			llm.NewSystemMessage("You plan meals."),
			llm.NewUserMessage("Plan dinners for 4."),
		},
		Schema: schema.NewObjectSchema(map[string]*schema.Schema{
			"menus": schema.NewArraySchema(schema.NewStringSchema("")),
		}, []string{"menus"}),
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var captured anthropicRequest
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, toolUseResponse(`{"menus": ["pasta"]}`))
	})

	result, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.NoError(t, err)

	assert.JSONEq(t, `{"menus": ["pasta"]}`, result.RawPayload)
	assert.Equal(t, "msg_test", result.ID)
	assert.Equal(t, 10, result.Usage.PromptTokens)
	assert.Equal(t, 20, result.Usage.CompletionTokens)

	// System messages move out of the conversation into the system field.
	assert.Equal(t, "You plan meals.", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)

	// Structured output rides a forced tool whose input schema is the target.
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, resultToolName, captured.Tools[0].Name)
	require.NotNil(t, captured.ToolChoice)
	assert.Equal(t, "tool", captured.ToolChoice.Type)
}

func TestAnthropicProvider_RateLimitRetriedThenSucceeds(t *testing.T) {
	calls := 0
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, toolUseResponse(`{"menus": []}`))
	})

	result, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"menus": []}`, result.RawPayload)
	assert.Equal(t, 2, calls, "a 429 must be retried internally")
}

func TestAnthropicProvider_RateLimitExhaustsBudget(t *testing.T) {
	calls := 0
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.Error(t, err)
	assert.True(t, llm.IsRateLimited(err))
	assert.Equal(t, 2, calls, "retry budget is MaxAttempts total calls")
}

func TestAnthropicProvider_RetryAfterHintSurfaces(t *testing.T) {
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	// A 7s hint would stall the test; a single attempt surfaces it instead.
	provider.retry = llm.RetryPolicy{MaxAttempts: 1, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond}

	_, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.Error(t, err)
	assert.Equal(t, 7*time.Second, llm.RetryAfterHint(err))
}

func TestAnthropicProvider_ServerErrorNotRetried(t *testing.T) {
	calls := 0
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"type": "api_error", "message": "backend down"}}`)
	})

	_, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.Error(t, err)
	assert.False(t, llm.IsRateLimited(err))
	assert.Equal(t, 1, calls, "5xx failures surface immediately, no internal retry")
	assert.Contains(t, err.Error(), "backend down")
}

func TestAnthropicProvider_Unauthorized(t *testing.T) {
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"type": "authentication_error", "message": "bad key"}}`)
	})

	_, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.Error(t, err)
	assert.False(t, llm.IsRateLimited(err))
}

func TestAnthropicProvider_AttemptTimeout(t *testing.T) {
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, toolUseResponse(`{"menus": []}`))
	})

	req := anthropicRequestFor(t)
	req.Timeout = 20 * time.Millisecond

	_, err := provider.Generate(context.Background(), req)
	require.Error(t, err)
	assert.False(t, llm.IsCanceled(err), "an attempt timeout is not caller cancellation")
	assert.False(t, llm.IsRateLimited(err))
}

func TestAnthropicProvider_CallerCancellation(t *testing.T) {
	started := make(chan struct{})
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(500 * time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := provider.Generate(ctx, anthropicRequestFor(t))
	require.Error(t, err)
	assert.True(t, llm.IsCanceled(err))
}

func TestAnthropicProvider_TextFallbackExtraction(t *testing.T) {
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "msg_text",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Here you go:\n`+"```json\\n{\\\"menus\\\": []}\\n```"+`"}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	})

	result, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"menus": []}`, result.RawPayload)
}

func TestAnthropicProvider_NoPayloadInResponse(t *testing.T) {
	provider, _ := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "msg_empty",
			"model": "claude-test",
			"content": [{"type": "text", "text": "I cannot help with that."}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	})

	_, err := provider.Generate(context.Background(), anthropicRequestFor(t))
	require.Error(t, err)
}

func TestNewAnthropicProvider_RequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewAnthropicProvider(llm.ProviderConfig{
		Type:  llm.ProviderAnthropic,
		Model: "claude-test",
	})
	require.Error(t, err)
}

func TestNewAnthropicProvider_TrailingSlashBaseURL(t *testing.T) {
	provider, err := NewAnthropicProvider(llm.ProviderConfig{
		Type:    llm.ProviderAnthropic,
		APIKey:  "key",
		BaseURL: "https://proxy.example.com/",
		Model:   "claude-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/v1/messages", provider.apiURL)
}

func TestRetryAfterHeader(t *testing.T) {
	withHeader := func(value string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if value != "" {
			resp.Header.Set("Retry-After", value)
		}
		return resp
	}

	t.Run("delay seconds", func(t *testing.T) {
		assert.Equal(t, 7*time.Second, retryAfterHeader(withHeader("7")))
	})

	t.Run("http date", func(t *testing.T) {
		at := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
		hint := retryAfterHeader(withHeader(at))
		assert.Greater(t, hint, 20*time.Second)
		assert.LessOrEqual(t, hint, 30*time.Second)
	})

	t.Run("http date in the past", func(t *testing.T) {
		at := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
		assert.Equal(t, time.Duration(0), retryAfterHeader(withHeader(at)))
	})

	t.Run("absent or garbage", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), retryAfterHeader(withHeader("")))
		assert.Equal(t, time.Duration(0), retryAfterHeader(withHeader("soon")))
		assert.Equal(t, time.Duration(0), retryAfterHeader(withHeader("-3")))
	})
}

func TestNewAnthropicProvider_EnvFallback(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	provider, err := NewAnthropicProvider(llm.ProviderConfig{
		Type:  llm.ProviderAnthropic,
		Model: "claude-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env", provider.apiKey)
	assert.True(t, strings.HasSuffix(provider.apiURL, "/v1/messages"))
}
