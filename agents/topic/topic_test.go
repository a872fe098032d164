package topic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/voiceguard/core/conversation"
)

func TestRun_UsesInstruction(t *testing.T) {
	st := conversation.New("", "")
	st.SetInstruction("어떤 유형을 연습할까요?")

	require.NoError(t, New().Run(context.Background(), st))

	msgs := st.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.AgentTopicSelection, msgs[0].Agent)
	assert.Equal(t, "어떤 유형을 연습할까요?", msgs[0].Content)
	assert.False(t, st.NeedsTopicSelection())
	assert.Equal(t, 0, st.TurnCount())
}

func TestRun_DefaultQuestion(t *testing.T) {
	st := conversation.New("", "")
	st.SetInstruction("   ")

	require.NoError(t, New().Run(context.Background(), st))
	assert.Equal(t, DefaultQuestion, st.Messages()[0].Content)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := conversation.New("", "")
	assert.ErrorIs(t, New().Run(ctx, st), context.Canceled)
	assert.Zero(t, st.Len())
}
