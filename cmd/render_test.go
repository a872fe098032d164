package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adalundhe/voiceguard/core/conversation"
)

func TestTranscriptLabels(t *testing.T) {
	var out bytes.Buffer
	tr := newTranscript(&out)

	tests := []struct {
		turn  conversation.Turn
		label string
	}{
		{conversation.User("네?"), "👤 사용자"},
		{conversation.Assistant(conversation.AgentTopicSelection, "주제를 골라주세요"), "🤖 시스템"},
		{conversation.Assistant(conversation.AgentRolePlay, "검찰청입니다"), "🎭 사기범"},
		{conversation.Assistant(conversation.AgentGuardian, "잠깐만요"), "🛡️ 가디언"},
	}
	for _, tt := range tests {
		label, _ := tr.speaker(tt.turn)
		assert.Equal(t, tt.label, label)
	}
}

func TestTranscriptAssistantTurnsSkipsTrainee(t *testing.T) {
	var out bytes.Buffer
	tr := newTranscript(&out)

	tr.assistantTurns([]conversation.Turn{
		conversation.User("제 번호는 비밀이에요"),
		conversation.Assistant(conversation.AgentRolePlay, "확인 차 여쭤봅니다"),
	})

	assert.NotContains(t, out.String(), "비밀이에요")
	assert.Contains(t, out.String(), "🎭 사기범: 확인 차 여쭤봅니다")
}

func TestTranscriptRule(t *testing.T) {
	var out bytes.Buffer
	newTranscript(&out).rule()
	assert.Equal(t, strings.Repeat("=", ruleWidth)+"\n", out.String())
}
