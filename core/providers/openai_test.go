package providers

import (
	"testing"

	"github.com/openai/openai-go/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertResponseMessages_ToolRoundTrip(t *testing.T) {
	items := convertResponseMessages([]Message{
		UserMessage("hi"),
		AssistantMessage("", ToolCall{ID: "call_1", Name: "search", Arguments: `{"query":"x"}`}),
		ToolResult("call_1", "found"),
	}, "system")

	require.Len(t, items, 4)
	assert.NotNil(t, items[0].OfMessage)
	assert.NotNil(t, items[1].OfMessage)
	require.NotNil(t, items[2].OfFunctionCall)
	assert.Equal(t, "call_1", items[2].OfFunctionCall.CallID)
	assert.Equal(t, "search", items[2].OfFunctionCall.Name)
	require.NotNil(t, items[3].OfFunctionCallOutput)
	assert.Equal(t, "call_1", items[3].OfFunctionCallOutput.CallID)
}

func TestOpenAIProvider_ConvertResponseUsesCallID(t *testing.T) {
	p := &OpenAIProvider{config: DefaultOpenAIConfig()}
	resp := p.convertResponse(&responses.Response{
		ID:    "resp_1",
		Model: "gpt-4o",
		Output: []responses.ResponseOutputItemUnion{
			{Type: "function_call", ID: "fc_1", CallID: "call_1", Name: "search", Arguments: `{"query":"x"}`},
		},
	})

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, StopReasonToolUse, resp.StopReason)
}

func TestOpenAIProvider_ConvertNilResponse(t *testing.T) {
	p := &OpenAIProvider{config: DefaultOpenAIConfig()}
	assert.Equal(t, StopReasonError, p.convertResponse(nil).StopReason)
}

func TestEnsureObjectType_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"properties": map[string]any{}}
	out := ensureObjectType(in)
	assert.Equal(t, "object", out["type"])
	_, mutated := in["type"]
	assert.False(t, mutated)
	assert.Equal(t, map[string]any{"type": "object"}, ensureObjectType(nil))
}
