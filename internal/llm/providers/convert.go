package providers

import (
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/savo-ai/savo/internal/llm"
	"github.com/savo-ai/savo/internal/schema"
)

// toLangchainMessages converts Savo messages to langchaingo MessageContent
func toLangchainMessages(messages []llm.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))

	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}

		result = append(result, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	return result
}

// buildCallOptions converts a Savo request to langchaingo call options.
// JSON mode is requested so backends that support it emit bare JSON.
func buildCallOptions(req llm.GenerateRequest, defaultModel string) []llms.CallOption {
	callOpts := []llms.CallOption{llms.WithJSONMode()}

	model := req.Model
	if model == "" {
		model = defaultModel
	}
	if model != "" {
		callOpts = append(callOpts, llms.WithModel(model))
	}

	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}

	return callOpts
}

// withSchemaInstruction prepends a system message embedding the output schema.
// JSON mode guarantees syntactically valid JSON but not the shape; the schema
// rides along in the instruction so the model knows what to produce.
func withSchemaInstruction(messages []llm.Message, s *schema.Schema) []llm.Message {
	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return messages
	}

	instruction := llm.NewSystemMessage(fmt.Sprintf(
		"Respond with a single JSON document that conforms to this JSON Schema, and nothing else:\n%s",
		schemaJSON))

	result := make([]llm.Message, 0, len(messages)+1)
	result = append(result, instruction)
	result = append(result, messages...)
	return result
}

// payloadFromResponse extracts the JSON payload text from a langchaingo
// content response.
func payloadFromResponse(provider string, resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", llm.NewParseError(provider, fmt.Errorf("empty response"))
	}

	raw, err := llm.ExtractJSON(resp.Choices[0].Content)
	if err != nil {
		return "", llm.NewParseError(provider, err)
	}
	return raw, nil
}
