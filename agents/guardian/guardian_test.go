package guardian

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/providers"
	"github.com/adalundhe/voiceguard/core/retrieval"
)

type fixedIntervener struct {
	text string
	err  error
	got  Request
}

func (f *fixedIntervener) Intervene(_ context.Context, req Request) (string, error) {
	f.got = req
	return f.text, f.err
}

func dangerState(t *testing.T, reply string, detected ...string) *conversation.State {
	t.Helper()
	st := conversation.New("검찰 사칭", "")
	require.NoError(t, st.SetPhase(conversation.PhaseRolePlay))
	require.NoError(t, st.CompleteRolePlay("", "수사관입니다. 주민번호 확인하겠습니다.", "", 0))
	st.SetUserInput(reply)
	st.SetEvaluation(conversation.EvaluationResult{IsDanger: true, Reason: "민감 정보 노출: 주민등록번호", DetectedInfo: detected})
	return st
}

func TestNode_MasksReplyAndAppendsMessage(t *testing.T) {
	iv := &fixedIntervener{text: "  주민등록번호는 절대 알려주지 마세요.  "}
	st := dangerState(t, "네 900101-1234567 이고 저희 딸 이름은 김민지예요", "900101-1234567", "김민지")

	require.NoError(t, NewNode(NodeConfig{Intervener: iv}).Run(context.Background(), st))

	msgs := st.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, conversation.User("네 [REDACTED] 이고 저희 딸 이름은 [REDACTED]예요"), msgs[1])
	assert.Equal(t, conversation.Assistant(conversation.AgentGuardian, "주민등록번호는 절대 알려주지 마세요."), msgs[2])
	assert.Equal(t, conversation.PhaseGuardian, st.Phase())
	assert.False(t, st.HasUserInput())
	assert.Equal(t, 1, st.TurnCount())

	assert.Equal(t, "검찰 사칭", iv.got.Topic)
	assert.NotContains(t, iv.got.Reply, "900101")
	assert.True(t, iv.got.Evaluation.IsDanger)
}

func TestNode_FallbackOnFailure(t *testing.T) {
	for _, iv := range []*fixedIntervener{
		{err: errors.New("guardian completion: overloaded")},
		{text: "   "},
	} {
		st := dangerState(t, "010-1234-5678이요", "010-1234-5678")
		require.NoError(t, NewNode(NodeConfig{Intervener: iv}).Run(context.Background(), st))

		last := st.Messages()[st.Len()-1]
		assert.Equal(t, conversation.AgentGuardian, last.Agent)
		assert.Contains(t, last.Content, "⚠️")
		assert.Contains(t, last.Content, "01*********78")
		assert.NotContains(t, last.Content, "010-1234-5678")
	}
}

func TestNode_NoIntervener(t *testing.T) {
	st := dangerState(t, "비밀번호는 1234", "비밀번호는 1234")
	require.NoError(t, NewNode(NodeConfig{}).Run(context.Background(), st))
	assert.Equal(t, FallbackMessage(*st.Evaluation()), st.Messages()[st.Len()-1].Content)
}

func TestNode_WithoutPendingReply(t *testing.T) {
	st := dangerState(t, "")
	require.NoError(t, NewNode(NodeConfig{}).Run(context.Background(), st))

	msgs := st.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.AgentGuardian, msgs[1].Agent)
}

func TestNode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	iv := &fixedIntervener{err: context.Canceled}
	st := dangerState(t, "네", "x")
	assert.ErrorIs(t, NewNode(NodeConfig{Intervener: iv}).Run(ctx, st), context.Canceled)
	assert.Equal(t, conversation.PhaseEvaluate, st.Phase())
	assert.Equal(t, 1, st.Len())
}

func TestFallbackMessage(t *testing.T) {
	msg := FallbackMessage(conversation.EvaluationResult{
		IsDanger:     true,
		Reason:       "계좌번호 노출",
		DetectedInfo: []string{"110-123-456789", "1234"},
	})
	assert.Contains(t, msg, "판단 이유: 계좌번호 노출")
	assert.Contains(t, msg, "- 11**********89")
	assert.Contains(t, msg, "- ****")
	assert.Contains(t, msg, "112")

	plain := FallbackMessage(conversation.EvaluationResult{})
	assert.NotContains(t, plain, "판단 이유")
	assert.NotContains(t, plain, "노출된 정보")
}

type staticSearcher struct{ query string }

func (s *staticSearcher) Search(_ context.Context, query string, _ int) ([]retrieval.Case, error) {
	s.query = query
	return []retrieval.Case{{Headline: "검찰 사칭 피해", Snippet: "수사관 사칭"}}, nil
}

func TestLLMIntervener(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("위험한 응답이었어요.")
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaGuardian},
		Provider: mock,
	})
	require.NoError(t, err)
	searcher := &staticSearcher{}

	text, err := NewLLMIntervener(svc, searcher, 2, "").Intervene(context.Background(), Request{
		Evaluation: conversation.EvaluationResult{IsDanger: true, Reason: "주민등록번호 노출", DetectedInfo: []string{"a"}},
		Topic:      "검찰 사칭",
		Reply:      "네 [REDACTED]",
	})
	require.NoError(t, err)
	assert.Equal(t, "위험한 응답이었어요.", text)
	assert.Equal(t, "검찰 사칭", searcher.query)

	req := mock.Requests()[0]
	assert.Contains(t, req.SystemPrompt, "**Guardian Agent**")
	assert.Contains(t, req.SystemPrompt, "[1] 검찰 사칭 피해\n수사관 사칭")
	assert.Contains(t, req.Messages[0].Content, "- 판단 이유: 주민등록번호 노출")
	assert.Contains(t, req.Messages[0].Content, "네 [REDACTED]")
}

func TestLLMIntervener_FallbackTopic(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("a").QueueText("b")
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaGuardian},
		Provider: mock,
	})
	require.NoError(t, err)
	req := Request{Evaluation: conversation.EvaluationResult{IsDanger: true}, Reply: "네"}

	_, err = NewLLMIntervener(svc, nil, 1, "택배 사칭").Intervene(context.Background(), req)
	require.NoError(t, err)
	_, err = NewLLMIntervener(svc, nil, 1, " ").Intervene(context.Background(), req)
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[0].Messages[0].Content, "## 시나리오 주제\n택배 사칭")
	assert.Contains(t, reqs[1].Messages[0].Content, "## 시나리오 주제\n"+DefaultFallbackTopic)
}
