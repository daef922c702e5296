package task

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/savo-ai/savo/internal/llm"
	"github.com/savo-ai/savo/internal/schema"
	"github.com/savo-ai/savo/internal/types"
)

// DefaultSchemaRetryBudget is the number of corrective retries a task gets
// when its spec does not say otherwise.
const DefaultSchemaRetryBudget = 1

// Spec is a named unit of generation work: one prompt template bound to one
// output schema. Specs are immutable once compiled; they are loaded from the
// task registry at process start and never change mid-invocation.
type Spec struct {
	// Name identifies the task (e.g. "weekly_menu_plan").
	Name string

	// SystemPrompt is the optional system instruction sent ahead of the
	// conversation. Static text, not templated.
	SystemPrompt string

	// PromptTemplate is a text/template body rendered against the caller's
	// context values to produce the user message.
	PromptTemplate string

	// SchemaID names the output schema in the schema registry.
	SchemaID string

	// SchemaRetryBudget is the number of corrective retries allowed after a
	// schema-invalid payload. Negative values are rejected at compile time.
	SchemaRetryBudget int

	// RequiredContextKeys must all be present in the caller's context map;
	// a missing key fails the invocation before any network call.
	RequiredContextKeys []string

	// Model and Temperature are optional per-task generation overrides.
	Model       string
	Temperature float64

	tmpl *template.Template
}

// Compile validates a spec and parses its prompt template. A spec that fails
// to compile is a deployment defect: the task registry refuses it at startup.
func Compile(spec Spec) (*Spec, error) {
	if spec.Name == "" {
		return nil, types.NewError(types.TASK_PARSE_FAILED, "task spec has no name")
	}
	if spec.PromptTemplate == "" {
		return nil, types.NewError(types.TASK_PARSE_FAILED, fmt.Sprintf("task %q has no prompt template", spec.Name))
	}
	if spec.SchemaID == "" {
		return nil, types.NewError(types.TASK_PARSE_FAILED, fmt.Sprintf("task %q has no schema id", spec.Name))
	}
	if spec.SchemaRetryBudget < 0 {
		return nil, types.NewError(types.TASK_PARSE_FAILED, fmt.Sprintf("task %q has negative schema retry budget", spec.Name))
	}
	if spec.Temperature < 0 || spec.Temperature > 1 {
		return nil, types.NewError(types.TASK_PARSE_FAILED, fmt.Sprintf("task %q temperature must be between 0 and 1", spec.Name))
	}

	tmpl, err := template.New(spec.Name).Option("missingkey=error").Parse(spec.PromptTemplate)
	if err != nil {
		return nil, types.WrapError(types.TASK_TEMPLATE_INVALID,
			fmt.Sprintf("task %q has an invalid prompt template", spec.Name), err)
	}

	compiled := spec
	compiled.tmpl = tmpl
	return &compiled, nil
}

// BuildMessages renders the spec's template against the caller's context
// values and returns the ordered message list for the first provider call.
//
// Every required context key is checked up front; all missing keys are
// reported in a single TASK_BINDING_FAILED error so the caller can fix the
// whole context at once. No network activity happens before this succeeds.
func (s *Spec) BuildMessages(contextValues map[string]any) ([]llm.Message, error) {
	var missing []string
	for _, key := range s.RequiredContextKeys {
		if _, ok := contextValues[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, types.NewError(types.TASK_BINDING_FAILED,
			fmt.Sprintf("task %q missing required context keys: %s", s.Name, strings.Join(missing, ", ")))
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, contextValues); err != nil {
		// missingkey=error catches template references beyond the declared
		// required keys.
		return nil, types.WrapError(types.TASK_BINDING_FAILED,
			fmt.Sprintf("task %q template binding failed", s.Name), err)
	}

	var messages []llm.Message
	if s.SystemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(s.SystemPrompt))
	}
	messages = append(messages, llm.NewUserMessage(buf.String()))
	return messages, nil
}

// CorrectionMessages extends a prior conversation with the provider's invalid
// payload and a correction instruction enumerating every violation. The same
// provider that produced the invalid payload receives the result.
func CorrectionMessages(prior []llm.Message, invalidPayload string, violations []schema.Violation) []llm.Message {
	messages := make([]llm.Message, 0, len(prior)+2)
	messages = append(messages, prior...)
	messages = append(messages, llm.NewAssistantMessage(invalidPayload))
	messages = append(messages, llm.NewUserMessage(CorrectionPrompt(violations)))
	return messages
}

// CorrectionPrompt builds the corrective instruction listing all violations
// from the failed validation, so a single retry can address every problem.
func CorrectionPrompt(violations []schema.Violation) string {
	var b strings.Builder
	b.WriteString("Your previous response did not satisfy the required output schema. ")
	b.WriteString("Fix every problem listed below and reply with the corrected JSON only, no surrounding text:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s: %s\n", v.Path, v.Message)
	}
	return b.String()
}
