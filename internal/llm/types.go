package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/savo-ai/savo/internal/schema"
)

// Role represents the role of a message in a conversation
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid value
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Role) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	role := Role(str)
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", str)
	}

	*r = role
	return nil
}

// Message represents a single message in a conversation with an LLM.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a new system message
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate checks if the message is valid
func (m Message) Validate() error {
	if !m.Role.IsValid() {
		return fmt.Errorf("invalid role: %s", m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("%s message must have content", m.Role)
	}
	return nil
}

// GenerateRequest carries one structured-output generation attempt to a provider.
// The schema describes the shape the backend is asked to produce; backends that
// support a native structured mode use it directly, others receive it as an
// instruction and have their output extracted and re-parsed.
type GenerateRequest struct {
	Messages    []Message      `json:"messages"`
	Schema      *schema.Schema `json:"schema"`
	Model       string         `json:"model,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`

	// Timeout bounds each network attempt. Zero means the provider default.
	Timeout time.Duration `json:"-"`
}

// Validate checks if the generate request is valid
func (r GenerateRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	for i, msg := range r.Messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	if r.Schema == nil {
		return fmt.Errorf("schema is required")
	}
	if r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", r.Temperature)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", r.MaxTokens)
	}
	return nil
}

// GenerateResult is the successful outcome of one provider call.
// RawPayload holds the extracted JSON text exactly as the backend produced it;
// validation happens downstream and a result is never treated as valid here.
type GenerateResult struct {
	// ID is a unique identifier for this generation
	ID string `json:"id"`

	// Model is the model that produced this result
	Model string `json:"model"`

	// RawPayload is the JSON payload text extracted from the response
	RawPayload string `json:"raw_payload"`

	// Usage contains token usage statistics when the backend reports them
	Usage TokenUsage `json:"usage"`
}

// TokenUsage contains token usage statistics for a generation.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used
	TotalTokens int `json:"total_tokens"`
}
