package providers

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicMessagesClient is the slice of the Anthropic SDK the provider
// uses. Tests substitute a mock.
type AnthropicMessagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

type sdkMessagesClient struct {
	messages *anthropic.MessageService
}

func (c *sdkMessagesClient) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.messages.New(ctx, params)
}

// MockAnthropicClient records calls and replays queued messages.
type MockAnthropicClient struct {
	Responses []*anthropic.Message
	Error     error
	Calls     []anthropic.MessageNewParams
}

func NewMockAnthropicClient() *MockAnthropicClient {
	return &MockAnthropicClient{}
}

func (m *MockAnthropicClient) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	m.Calls = append(m.Calls, params)
	if m.Error != nil {
		return nil, m.Error
	}
	if len(m.Responses) == 0 {
		return &anthropic.Message{StopReason: anthropic.StopReasonEndTurn}, nil
	}
	msg := m.Responses[0]
	m.Responses = m.Responses[1:]
	return msg, nil
}

// QueueText appends a plain text reply.
func (m *MockAnthropicClient) QueueText(content string, inputTokens, outputTokens int64) {
	m.Responses = append(m.Responses, &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: content},
		},
		StopReason: anthropic.StopReasonEndTurn,
		Usage: anthropic.Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		},
	})
}

// QueueToolUse appends a reply that asks for one tool call.
func (m *MockAnthropicClient) QueueToolUse(id, name, input string) {
	m.Responses = append(m.Responses, &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "tool_use", ID: id, Name: name, Input: json.RawMessage(input)},
		},
		StopReason: anthropic.StopReasonToolUse,
	})
}

func (m *MockAnthropicClient) CallCount() int {
	return len(m.Calls)
}
