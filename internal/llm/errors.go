package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/savo-ai/savo/internal/types"
)

// LLM error codes follow the Savo error pattern
const (
	// Provider errors
	ErrProviderNotFound      types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed    types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable   types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized  types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited   types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"
	ErrProviderAlreadyExists types.ErrorCode = "LLM_PROVIDER_ALREADY_EXISTS"
	ErrProviderInvalidInput  types.ErrorCode = "LLM_PROVIDER_INVALID_INPUT"

	// Request errors
	ErrInvalidRequest types.ErrorCode = "LLM_INVALID_REQUEST"

	// Completion errors
	ErrResponseParseFailed types.ErrorCode = "LLM_RESPONSE_PARSE_FAILED"
	ErrTimeoutExceeded     types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"
	ErrContextCanceled     types.ErrorCode = "LLM_CONTEXT_CANCELED"

	// Network errors
	ErrNetworkFailed types.ErrorCode = "LLM_NETWORK_FAILED"
)

// RateLimitError reports that a backend returned HTTP 429 and the provider's
// internal retry budget could not absorb it. RetryAfter carries the backend's
// hint when one was supplied, zero otherwise.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("[%s] rate limit exceeded for provider %s (retry after %s)",
			ErrProviderRateLimited, e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("[%s] rate limit exceeded for provider %s", ErrProviderRateLimited, e.Provider)
}

// NewRateLimitError creates a rate limit error with an optional retry-after hint.
func NewRateLimitError(provider string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Provider: provider, RetryAfter: retryAfter}
}

// IsRateLimited reports whether the error chain represents a backend rate limit.
// Only rate-limit errors are eligible for provider fallback.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	return types.CodeOf(err) == ErrProviderRateLimited
}

// RetryAfterHint extracts the backend-supplied retry-after hint from an error
// chain. Returns zero when the chain carries no hint.
func RetryAfterHint(err error) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}

// IsCanceled reports whether the error chain represents caller-initiated
// cancellation of the whole invocation, as opposed to a per-attempt timeout.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return types.CodeOf(err) == ErrContextCanceled
}

// Helper functions for creating common LLM errors

// NewProviderNotFoundError creates an error for when a provider is not found
func NewProviderNotFoundError(providerName string) *types.SavoError {
	return types.NewError(ErrProviderNotFound, "provider not found: "+providerName)
}

// NewProviderUnavailableError creates a retryable error for when a provider is temporarily unavailable
func NewProviderUnavailableError(providerName string, cause error) *types.SavoError {
	return &types.SavoError{
		Code:      ErrProviderUnavailable,
		Message:   "provider temporarily unavailable: " + providerName,
		Retryable: true,
		Cause:     cause,
	}
}

// NewProviderUnauthorizedError creates an unauthorized provider error
func NewProviderUnauthorizedError(providerName string, cause error) *types.SavoError {
	return &types.SavoError{
		Code:    ErrProviderUnauthorized,
		Message: fmt.Sprintf("provider '%s' authentication failed", providerName),
		Cause:   cause,
	}
}

// NewNetworkError creates a retryable error for network failures
func NewNetworkError(message string, cause error) *types.SavoError {
	return &types.SavoError{
		Code:      ErrNetworkFailed,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewTimeoutError creates a retryable error for per-attempt timeout failures
func NewTimeoutError(message string) *types.SavoError {
	return &types.SavoError{
		Code:      ErrTimeoutExceeded,
		Message:   message,
		Retryable: true,
	}
}

// NewCanceledError marks an error chain as caller-initiated cancellation.
func NewCanceledError(cause error) *types.SavoError {
	return &types.SavoError{
		Code:    ErrContextCanceled,
		Message: "generation canceled by caller",
		Cause:   cause,
	}
}

// NewParseError creates an error for responses that carried no usable JSON payload
func NewParseError(provider string, cause error) *types.SavoError {
	return types.WrapError(ErrResponseParseFailed,
		"no JSON payload in response from provider "+provider, cause)
}

// NewInvalidRequestError creates an error for invalid requests
func NewInvalidRequestError(message string) *types.SavoError {
	return types.NewError(ErrInvalidRequest, message)
}

// TranslateError translates generic backend errors into Savo errors based on
// error message content. Used for SDK paths (langchaingo) that do not expose
// HTTP status codes directly.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	// Already classified
	var savoErr *types.SavoError
	if errors.As(err, &savoErr) {
		return err
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return NewCanceledError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request to provider " + provider + " timed out")
	}

	lowerMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerMsg, "unauthorized") || strings.Contains(lowerMsg, "authentication") || strings.Contains(lowerMsg, "api key"):
		return NewProviderUnauthorizedError(provider, err)
	case strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests") || strings.Contains(lowerMsg, "429"):
		return NewRateLimitError(provider, 0)
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline"):
		return NewTimeoutError(err.Error())
	case strings.Contains(lowerMsg, "network") || strings.Contains(lowerMsg, "connection"):
		return NewNetworkError(err.Error(), err)
	default:
		return NewProviderUnavailableError(provider, err)
	}
}
