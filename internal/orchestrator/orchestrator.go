package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/savo-ai/savo/internal/llm"
	"github.com/savo-ai/savo/internal/schema"
	"github.com/savo-ai/savo/internal/task"
	"github.com/savo-ai/savo/internal/types"
)

// state names a position in the generation-request lifecycle. The run loop
// is an explicit finite state machine so the bounded-call-count guarantee
// (at most 4 provider calls per invocation) is mechanically checkable.
type state int

const (
	stateDrafting state = iota
	stateAwaitingPrimary
	stateValidating
	stateCorrectivePrompting
	stateAwaitingFallback
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateDrafting:
		return "drafting"
	case stateAwaitingPrimary:
		return "awaiting_primary"
	case stateValidating:
		return "validating"
	case stateCorrectivePrompting:
		return "corrective_prompting"
	case stateAwaitingFallback:
		return "awaiting_fallback"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Orchestrator coordinates one generation request end to end: template
// binding, provider dispatch, schema validation, corrective retry, and
// rate-limit fallback. It holds only read-only registries and resolved
// provider references, so concurrent RunTask calls need no locking.
type Orchestrator struct {
	schemas *schema.Registry
	tasks   *task.Registry

	primary    llm.Provider
	primaryID  string
	fallback   llm.Provider // nil when fallback is disabled
	fallbackID string

	perCallTimeout time.Duration
	logger         *slog.Logger
}

// New builds an Orchestrator, resolving the configured providers from the
// registry and cross-checking that every task's schema exists. Resolution
// failures are construction errors, not runtime errors.
func New(providers llm.Registry, schemas *schema.Registry, tasks *task.Registry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	primary, err := providers.Get(cfg.PrimaryProvider)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		schemas:        schemas,
		tasks:          tasks,
		primary:        primary,
		primaryID:      cfg.PrimaryProvider,
		perCallTimeout: cfg.PerCallTimeout,
		logger:         slog.Default(),
	}
	if o.perCallTimeout <= 0 {
		o.perCallTimeout = DefaultPerCallTimeout
	}

	if cfg.FallbackProvider != "" {
		fallback, err := providers.Get(cfg.FallbackProvider)
		if err != nil {
			return nil, err
		}
		o.fallback = fallback
		o.fallbackID = cfg.FallbackProvider
	}

	for _, name := range tasks.List() {
		spec, err := tasks.Get(name)
		if err != nil {
			return nil, err
		}
		if _, err := schemas.Get(spec.SchemaID); err != nil {
			return nil, types.WrapError(types.TASK_PARSE_FAILED,
				fmt.Sprintf("task %q references unknown schema %q", name, spec.SchemaID), err)
		}
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// clarificationEnvelope is the trusted self-report shape a provider emits
// when it lacks information to generate. It bypasses the validator entirely.
type clarificationEnvelope struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Questions          []string `json:"questions"`
}

// RunTask executes one generation request for the named task against the
// caller's context values. The returned Result is the complete outcome;
// callers must treat any non-Ok result as "no usable result this turn".
//
// Cancellation of ctx aborts the in-flight provider call and terminates the
// invocation immediately with a cancelled error; no retry or fallback
// happens after cancellation.
func (o *Orchestrator) RunTask(ctx context.Context, taskName string, contextValues map[string]any) Result {
	// Drafting: everything here fails fast, before any network call.
	spec, err := o.tasks.Get(taskName)
	if err != nil {
		return errorResult(ErrorKindBinding, err.Error())
	}

	targetSchema, err := o.schemas.Get(spec.SchemaID)
	if err != nil {
		return errorResult(ErrorKindBinding, err.Error())
	}

	initial, err := spec.BuildMessages(contextValues)
	if err != nil {
		return errorResult(ErrorKindBinding, err.Error())
	}

	run := &runState{
		spec:       spec,
		schema:     targetSchema,
		messages:   initial,
		initial:    initial,
		provider:   o.primary,
		providerID: o.primaryID,
		state:      stateAwaitingPrimary,
	}

	o.logger.Debug("task started",
		"task", taskName,
		"schema", spec.SchemaID,
		"provider", o.primaryID)

	for {
		switch run.state {
		case stateAwaitingPrimary, stateAwaitingFallback:
			o.dispatch(ctx, run)

		case stateValidating:
			o.validate(run)

		case stateCorrectivePrompting:
			run.messages = task.CorrectionMessages(run.messages, run.raw, run.violations)
			o.transition(run, run.awaitingState())

		case stateDone, stateFailed:
			o.logger.Debug("task finished",
				"task", taskName,
				"state", run.state.String(),
				"status", string(run.result.Status()))
			return run.result
		}
	}
}

// runState is the per-invocation working set. It is owned exclusively by one
// RunTask call and discarded on completion; nothing here is shared.
type runState struct {
	spec   *task.Spec
	schema *schema.Schema

	messages []llm.Message
	initial  []llm.Message

	provider   llm.Provider
	providerID string
	onFallback bool

	// schemaRetries counts corrective retries on the current provider leg.
	// It is independent of the rate-limit retry counters each provider owns,
	// and resets when the invocation switches to the fallback provider.
	schemaRetries int

	raw        string
	violations []schema.Violation

	state  state
	result Result
}

func (r *runState) awaitingState() state {
	if r.onFallback {
		return stateAwaitingFallback
	}
	return stateAwaitingPrimary
}

func (o *Orchestrator) transition(run *runState, to state) {
	o.logger.Debug("state transition",
		"task", run.spec.Name,
		"from", run.state.String(),
		"to", to.String(),
		"provider", run.providerID)
	run.state = to
}

// dispatch performs one provider call and classifies the outcome.
func (o *Orchestrator) dispatch(ctx context.Context, run *runState) {
	req := llm.GenerateRequest{
		Messages:    run.messages,
		Schema:      run.schema,
		Model:       run.spec.Model,
		Temperature: run.spec.Temperature,
		Timeout:     o.perCallTimeout,
	}

	result, err := run.provider.Generate(ctx, req)
	if err == nil {
		run.raw = result.RawPayload
		o.transition(run, stateValidating)
		return
	}

	switch {
	case llm.IsCanceled(err) || ctx.Err() != nil:
		run.result = errorResult(ErrorKindCancelled, err.Error())
		o.transition(run, stateFailed)

	case llm.IsRateLimited(err):
		// The provider's own retry budget is already spent by the time a
		// rate-limit error reaches this loop.
		if !run.onFallback && o.fallback != nil && ShouldFallback(ErrorKindRateLimitExhausted) {
			o.logger.Info("primary rate limited, switching to fallback",
				"task", run.spec.Name,
				"primary", o.primaryID,
				"fallback", o.fallbackID)
			run.provider = o.fallback
			run.providerID = o.fallbackID
			run.onFallback = true
			run.messages = run.initial
			run.schemaRetries = 0
			o.transition(run, stateAwaitingFallback)
			return
		}
		run.result = errorResult(ErrorKindRateLimitExhausted, err.Error())
		o.transition(run, stateFailed)

	default:
		// 5xx and transport failures are terminal: a second provider would
		// not reliably avoid a systemic issue.
		run.result = errorResult(ErrorKindProvider, err.Error())
		o.transition(run, stateFailed)
	}
}

// validate checks the raw payload, detecting a clarification self-report
// first since that bypasses the validator and consumes no retry slot.
func (o *Orchestrator) validate(run *runState) {
	var envelope clarificationEnvelope
	if err := json.Unmarshal([]byte(run.raw), &envelope); err == nil &&
		envelope.NeedsClarification && len(envelope.Questions) > 0 {
		run.result = clarificationResult(envelope.Questions)
		o.transition(run, stateDone)
		return
	}

	outcome := schema.Validate([]byte(run.raw), run.schema)
	if outcome.Valid() {
		run.result = okResult(outcome.Document(), run.providerID)
		o.transition(run, stateDone)
		return
	}

	run.violations = outcome.Violations()
	if run.schemaRetries < run.spec.SchemaRetryBudget {
		run.schemaRetries++
		o.logger.Info("payload failed validation, issuing corrective retry",
			"task", run.spec.Name,
			"provider", run.providerID,
			"violations", len(run.violations),
			"retry", run.schemaRetries,
			"budget", run.spec.SchemaRetryBudget)
		o.transition(run, stateCorrectivePrompting)
		return
	}

	run.result = validationFailedResult(
		fmt.Sprintf("payload from provider %q failed schema validation after %d corrective retries",
			run.providerID, run.schemaRetries),
		run.violations)
	o.transition(run, stateFailed)
}
