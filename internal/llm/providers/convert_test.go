package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/savo-ai/savo/internal/llm"
	"github.com/savo-ai/savo/internal/schema"
)

func TestToLangchainMessages(t *testing.T) {
	messages := []llm.Message{
		llm.NewSystemMessage("system"),
		llm.NewUserMessage("user"),
		llm.NewAssistantMessage("assistant"),
	}

	converted := toLangchainMessages(messages)

	require.Len(t, converted, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, converted[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, converted[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, converted[2].Role)
}

func TestWithSchemaInstruction(t *testing.T) {
	messages := []llm.Message{llm.NewUserMessage("plan my week")}
	s := schema.NewObjectSchema(map[string]*schema.Schema{
		"menus": schema.NewArraySchema(schema.NewStringSchema("")),
	}, []string{"menus"})

	result := withSchemaInstruction(messages, s)

	require.Len(t, result, 2)
	assert.Equal(t, llm.RoleSystem, result[0].Role)
	assert.Contains(t, result[0].Content, `"menus"`)
	assert.Contains(t, result[0].Content, "JSON Schema")
	assert.Equal(t, "plan my week", result[1].Content)
}

func TestPayloadFromResponse(t *testing.T) {
	t.Run("bare JSON content", func(t *testing.T) {
		resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{
			{Content: `{"menus": []}`},
		}}

		raw, err := payloadFromResponse("openai", resp)
		require.NoError(t, err)
		assert.Equal(t, `{"menus": []}`, raw)
	})

	t.Run("fenced content", func(t *testing.T) {
		resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{
			{Content: "```json\n{\"menus\": []}\n```"},
		}}

		raw, err := payloadFromResponse("openai", resp)
		require.NoError(t, err)
		assert.Equal(t, `{"menus": []}`, raw)
	})

	t.Run("empty response", func(t *testing.T) {
		_, err := payloadFromResponse("openai", &llms.ContentResponse{})
		require.Error(t, err)
	})

	t.Run("no JSON in content", func(t *testing.T) {
		resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{
			{Content: "sorry, I cannot"},
		}}

		_, err := payloadFromResponse("openai", resp)
		require.Error(t, err)
	})
}
