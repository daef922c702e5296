package orchestrator

import "github.com/savo-ai/savo/internal/schema"

// Status classifies an orchestration result.
type Status string

const (
	// StatusOk means the payload passed schema validation.
	StatusOk Status = "ok"

	// StatusNeedsClarification means the provider explicitly reported it
	// lacks information to generate. Not a failure; the questions are
	// propagated verbatim for the caller to answer.
	StatusNeedsClarification Status = "needs_clarification"

	// StatusError means no usable result was produced this invocation.
	StatusError Status = "error"
)

// ErrorKind is the failure taxonomy for orchestration errors.
type ErrorKind string

const (
	// ErrorKindBinding: a required context value was missing; no network
	// call was made.
	ErrorKindBinding ErrorKind = "binding_error"

	// ErrorKindProvider: 5xx or transport failure. Never triggers fallback.
	ErrorKindProvider ErrorKind = "provider_error"

	// ErrorKindRateLimitExhausted: 429 beyond the provider's internal retry
	// budget. The only kind eligible for provider fallback.
	ErrorKindRateLimitExhausted ErrorKind = "rate_limit_exhausted"

	// ErrorKindSchemaValidation: the payload never became valid within the
	// corrective-retry budget. Carries the final violation list.
	ErrorKindSchemaValidation ErrorKind = "schema_validation_failed"

	// ErrorKindCancelled: the caller's deadline or cancellation fired
	// mid-flight. Never retried.
	ErrorKindCancelled ErrorKind = "cancelled"
)

// Result is the only type external callers observe from RunTask. It is a
// tagged union: exactly one of the Ok, NeedsClarification, or Error views is
// populated, and any non-Ok result must be treated as "no usable result this
// turn" — fields of other views are zero values, never partial data.
//
// A Result can only be built inside this package. The Ok variant requires a
// schema.Document, which is itself constructible only on the validator's
// success path, so an unvalidated success is unrepresentable.
type Result struct {
	status       Status
	doc          schema.Document
	providerUsed string
	questions    []string
	errKind      ErrorKind
	errMessage   string
	violations   []schema.Violation
}

// Status returns the result classification.
func (r Result) Status() Status { return r.status }

// Ok reports whether the result carries a validated payload.
func (r Result) Ok() bool { return r.status == StatusOk }

// Document returns the validated payload. Zero value unless Ok.
func (r Result) Document() schema.Document { return r.doc }

// ProviderUsed returns the identifier of the provider that produced the
// validated payload. Empty unless Ok.
func (r Result) ProviderUsed() string { return r.providerUsed }

// Questions returns the provider's clarification questions. Empty unless the
// status is StatusNeedsClarification.
func (r Result) Questions() []string { return r.questions }

// ErrorKind returns the failure classification. Empty unless StatusError.
func (r Result) ErrorKind() ErrorKind { return r.errKind }

// ErrorMessage returns the failure detail. Empty unless StatusError.
func (r Result) ErrorMessage() string { return r.errMessage }

// Violations returns the final attempt's complete violation list for
// schema-validation failures. Empty for every other kind.
func (r Result) Violations() []schema.Violation { return r.violations }

// okResult is reachable only from the validation-success branch of the run
// loop: the Document argument cannot exist without a Valid outcome.
func okResult(doc schema.Document, providerUsed string) Result {
	return Result{
		status:       StatusOk,
		doc:          doc,
		providerUsed: providerUsed,
	}
}

func clarificationResult(questions []string) Result {
	return Result{
		status:    StatusNeedsClarification,
		questions: questions,
	}
}

func errorResult(kind ErrorKind, message string) Result {
	return Result{
		status:     StatusError,
		errKind:    kind,
		errMessage: message,
	}
}

func validationFailedResult(message string, violations []schema.Violation) Result {
	return Result{
		status:     StatusError,
		errKind:    ErrorKindSchemaValidation,
		errMessage: message,
		violations: violations,
	}
}
