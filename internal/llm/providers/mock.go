package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/savo-ai/savo/internal/llm"
)

// MockCall records one call to the mock provider.
type MockCall struct {
	Request llm.GenerateRequest
}

// MockStep produces the outcome of one scripted mock call.
type MockStep func(ctx context.Context) (*llm.GenerateResult, error)

// RespondWith scripts a successful call returning the given raw payload.
func RespondWith(payload string) MockStep {
	return func(ctx context.Context) (*llm.GenerateResult, error) {
		return &llm.GenerateResult{
			ID:         uuid.New().String(),
			Model:      "mock-model",
			RawPayload: payload,
		}, nil
	}
}

// RespondRateLimited scripts a rate-limited call with an optional retry-after hint.
func RespondRateLimited(hint time.Duration) MockStep {
	return func(ctx context.Context) (*llm.GenerateResult, error) {
		return nil, llm.NewRateLimitError("mock", hint)
	}
}

// RespondTransient scripts a transient failure (a 5xx-class outcome).
func RespondTransient(message string) MockStep {
	return func(ctx context.Context) (*llm.GenerateResult, error) {
		return nil, llm.NewProviderUnavailableError("mock", fmt.Errorf("%s", message))
	}
}

// RespondFatal scripts a non-retryable failure.
func RespondFatal(message string) MockStep {
	return func(ctx context.Context) (*llm.GenerateResult, error) {
		return nil, llm.NewInvalidRequestError(message)
	}
}

// RespondAfterCancel scripts a call that blocks until the caller cancels,
// then reports cancellation. Used to exercise mid-flight cancellation.
func RespondAfterCancel() MockStep {
	return func(ctx context.Context) (*llm.GenerateResult, error) {
		<-ctx.Done()
		return nil, llm.NewCanceledError(ctx.Err())
	}
}

// MockProvider implements llm.Provider for tests: deterministic, zero
// latency, no network. Calls walk the script in order; when the script runs
// out the last step repeats. Every call is recorded.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	steps     []MockStep
	stepIndex int
	calls     []MockCall
}

// NewMockProvider creates a mock provider with the given scripted outcomes.
func NewMockProvider(steps ...MockStep) *MockProvider {
	return &MockProvider{
		name:  "mock",
		steps: steps,
		calls: make([]MockCall, 0),
	}
}

// WithName overrides the provider name so tests can tell two mock instances
// apart (e.g. a primary and a fallback).
func (p *MockProvider) WithName(name string) *MockProvider {
	p.name = name
	return p
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return p.name
}

// Generate returns the next scripted outcome and records the call.
func (p *MockProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, MockCall{Request: req})

	if len(p.steps) == 0 {
		p.mu.Unlock()
		return nil, llm.NewProviderUnavailableError(p.name, fmt.Errorf("no responses scripted"))
	}

	step := p.steps[p.stepIndex]
	if p.stepIndex < len(p.steps)-1 {
		p.stepIndex++
	}
	p.mu.Unlock()

	return step(ctx)
}

// Calls returns a copy of all recorded calls.
func (p *MockProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	calls := make([]MockCall, len(p.calls))
	copy(calls, p.calls)
	return calls
}

// CallCount returns the number of recorded calls.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Reset clears recorded calls and rewinds the script.
func (p *MockProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = p.calls[:0]
	p.stepIndex = 0
}

var _ llm.Provider = (*MockProvider)(nil)
