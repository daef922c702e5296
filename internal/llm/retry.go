package llm

import (
	"context"
	"time"
)

// Rate-limit retry defaults. Backoff doubles from the base and is capped;
// a backend-supplied retry-after hint acts as a floor for the wait.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 30 * time.Second
)

// RetryPolicy bounds the internal rate-limit retry loop each real provider
// runs before surfacing a rate-limit error upward. Only rate-limit failures
// are retried here: transport and 5xx failures surface immediately so the
// orchestrator can treat them as terminal.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first call.
	MaxAttempts int

	// BackoffBase is the wait before the first retry. Each subsequent wait doubles.
	BackoffBase time.Duration

	// BackoffCap bounds the computed wait. A retry-after hint may exceed it.
	BackoffCap time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 1s base, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BackoffBase: DefaultBackoffBase,
		BackoffCap:  DefaultBackoffCap,
	}
}

// normalized fills zero fields with defaults so a partially configured policy
// still behaves sanely.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultBackoffBase
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = DefaultBackoffCap
	}
	return p
}

// Wait returns the backoff duration before retry number retry (0-based),
// taking the larger of the exponential wait and the backend hint.
func (p RetryPolicy) Wait(retry int, hint time.Duration) time.Duration {
	p = p.normalized()
	wait := p.BackoffBase << uint(retry)
	if wait > p.BackoffCap || wait <= 0 {
		wait = p.BackoffCap
	}
	if hint > wait {
		wait = hint
	}
	return wait
}

// Do runs fn under the policy. fn is retried only when it fails with a
// rate-limit error; any other error returns immediately. The backoff wait is
// a scheduled timer, not a busy loop, and ctx cancellation aborts it.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (*GenerateResult, error)) (*GenerateResult, error) {
	p = p.normalized()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := p.Wait(attempt-1, RetryAfterHint(lastErr))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, NewCanceledError(ctx.Err())
			case <-timer.C:
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, NewCanceledError(ctx.Err())
		}
		if !IsRateLimited(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
