package roleplay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/memory"
	"github.com/adalundhe/voiceguard/core/providers"
	"github.com/adalundhe/voiceguard/core/retrieval"
)

type staticSearcher struct {
	queries []string
}

func (s *staticSearcher) Search(_ context.Context, query string, _ int) ([]retrieval.Case, error) {
	s.queries = append(s.queries, query)
	return []retrieval.Case{{Headline: "카드사 사칭 급증", Snippet: "카드 발급 안내 전화"}}, nil
}

type brokenSearcher struct{}

func (brokenSearcher) Search(context.Context, string, int) ([]retrieval.Case, error) {
	return nil, errors.New("index offline")
}

func newAgent(t *testing.T, mock *providers.MockProvider, searcher retrieval.Searcher, rounds int) *Agent {
	t.Helper()
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaRolePlay, Model: "mock-model"},
		Provider: mock,
	})
	require.NoError(t, err)
	agent, err := New(Config{Completer: svc, Searcher: searcher, MaxToolRounds: rounds})
	require.NoError(t, err)
	return agent
}

func rolePlayState(t *testing.T, topic, input string) *conversation.State {
	t.Helper()
	st := conversation.New(topic, input)
	require.NoError(t, st.SetPhase(conversation.PhaseRolePlay))
	return st
}

func TestNew_RequiresCompleter(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRun_FirstLine(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("  안녕하세요, 카드사 보안팀입니다.  ")
	searcher := &staticSearcher{}
	agent := newAgent(t, mock, searcher, 0)

	st := rolePlayState(t, "카드사 사칭", "")
	st.SetInstruction("카드사 사칭으로 시작해")
	require.NoError(t, agent.Run(context.Background(), st))

	msgs := st.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.Assistant(conversation.AgentRolePlay, "안녕하세요, 카드사 보안팀입니다."), msgs[0])
	assert.Equal(t, 1, st.TurnCount())
	assert.Equal(t, conversation.PhaseEvaluate, st.Phase())
	assert.Equal(t, []string{"카드사 사칭"}, searcher.queries)

	req := mock.Requests()[0]
	require.Len(t, req.Messages, 1)
	assert.Equal(t, startTrigger, req.Messages[0].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, retrieval.ToolName, req.Tools[0].Name)
	assert.Contains(t, req.SystemPrompt, "## Master Agent 지시\n카드사 사칭으로 시작해")
	assert.Contains(t, req.SystemPrompt, "- 주제: 카드사 사칭")
	assert.Contains(t, req.SystemPrompt, "- 현재 턴: 0")
	assert.Contains(t, req.SystemPrompt, "[1] 카드사 사칭 급증\n카드 발급 안내 전화")
	assert.Contains(t, req.SystemPrompt, memory.EmptyContext)
}

func TestRun_WithUserReply(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("본인 확인이 필요합니다.")
	agent := newAgent(t, mock, &staticSearcher{}, 0)

	st := rolePlayState(t, "", "")
	require.NoError(t, st.CompleteRolePlay("", "여보세요?", "", 0))
	require.NoError(t, st.SetPhase(conversation.PhaseRolePlay))
	st.SetUserInput("누구시죠?")

	require.NoError(t, agent.Run(context.Background(), st))

	msgs := st.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, conversation.User("누구시죠?"), msgs[1])
	assert.Equal(t, "본인 확인이 필요합니다.", msgs[2].Content)
	assert.Equal(t, 2, st.TurnCount())
	assert.False(t, st.HasUserInput())

	req := mock.Requests()[0]
	assert.Equal(t, "누구시죠?", req.Messages[0].Content)
	assert.Contains(t, req.SystemPrompt, "- 주제: "+DefaultFallbackTopic)
	assert.Contains(t, req.SystemPrompt, "## Master Agent 지시\n"+defaultInstruction)
	assert.Contains(t, req.SystemPrompt, "사용자: 누구시죠?")
}

func TestRun_ContinueTrigger(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("다시 연락드렸습니다.")
	agent := newAgent(t, mock, &staticSearcher{}, 0)

	st := rolePlayState(t, "대출 사기", "")
	require.NoError(t, st.CompleteRolePlay("", "첫 대사", "", 0))
	require.NoError(t, st.SetPhase(conversation.PhaseRolePlay))

	require.NoError(t, agent.Run(context.Background(), st))
	assert.Equal(t, continueTrigger, mock.Requests()[0].Messages[0].Content)
}

func TestRun_ToolLoop(t *testing.T) {
	mock := providers.NewMockProvider().
		QueueToolCall("call-1", retrieval.ToolName, `{"query":"검찰 사칭","top_k":1}`).
		QueueText("서울중앙지검 수사관입니다.")
	searcher := &staticSearcher{}
	agent := newAgent(t, mock, searcher, 0)

	st := rolePlayState(t, "검찰 사칭", "")
	require.NoError(t, agent.Run(context.Background(), st))

	assert.Equal(t, "서울중앙지검 수사관입니다.", st.Messages()[0].Content)
	assert.Equal(t, []string{"검찰 사칭", "검찰 사칭"}, searcher.queries)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	second := reqs[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, providers.RoleAssistant, second[1].Role)
	require.Len(t, second[1].ToolCalls, 1)
	assert.Equal(t, providers.RoleTool, second[2].Role)
	assert.Equal(t, "call-1", second[2].ToolCallID)
	assert.Equal(t, "[1] 카드사 사칭 급증\n카드 발급 안내 전화", second[2].Content)
}

func TestRun_ToolRoundOverflowUsesLastText(t *testing.T) {
	mock := providers.NewMockProvider()
	for i := 0; i < 2; i++ {
		mock.QueueResponse(&providers.Response{
			Content:    "잠시만요",
			StopReason: providers.StopReasonToolUse,
			ToolCalls:  []providers.ToolCall{{ID: "c", Name: retrieval.ToolName, Arguments: `{"query":"q"}`}},
		})
	}
	agent := newAgent(t, mock, &staticSearcher{}, 2)

	st := rolePlayState(t, "택배 사칭", "")
	require.NoError(t, agent.Run(context.Background(), st))

	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, "잠시만요", st.Messages()[0].Content)
	assert.Equal(t, 1, st.TurnCount())
}

func TestRun_UnknownToolIsAnswered(t *testing.T) {
	mock := providers.NewMockProvider().
		QueueToolCall("c1", "transfer_money", `{}`).
		QueueText("계좌를 확인하겠습니다.")
	agent := newAgent(t, mock, &staticSearcher{}, 0)

	require.NoError(t, agent.Run(context.Background(), rolePlayState(t, "x", "")))
	assert.Equal(t, retrieval.UnknownTool, mock.Requests()[1].Messages[2].Content)
}

func TestRun_MasksIdentifiers(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("고객님 카드번호 1234-5678-9012-3456 맞으시죠?")
	agent := newAgent(t, mock, &staticSearcher{}, 0)

	st := rolePlayState(t, "카드사 사칭", "")
	require.NoError(t, agent.Run(context.Background(), st))
	assert.Equal(t, "고객님 카드번호 [REDACTED] 맞으시죠?", st.Messages()[0].Content)
}

func TestRun_RetrievalFailureDegrades(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("안녕하세요")
	agent := newAgent(t, mock, brokenSearcher{}, 0)

	require.NoError(t, agent.Run(context.Background(), rolePlayState(t, "카드사 사칭", "")))
	assert.Contains(t, mock.Requests()[0].SystemPrompt, retrieval.NoResults)
}

func TestRun_CompletionFailurePropagates(t *testing.T) {
	mock := providers.NewMockProvider().QueueError(errors.New("invalid request body"))
	agent := newAgent(t, mock, &staticSearcher{}, 0)

	st := rolePlayState(t, "카드사 사칭", "")
	st.SetUserInput("네")
	err := agent.Run(context.Background(), st)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "roleplay turn 1")
	assert.Zero(t, st.Len())
	assert.Zero(t, st.TurnCount())
	assert.Equal(t, "네", st.UserInput())
}

type countingSummarizer struct{ calls int }

func (c *countingSummarizer) Summarize(_ context.Context, turns []conversation.Turn, existing string) (string, error) {
	c.calls++
	return "요약", nil
}

func TestRun_RefreshesSummary(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("다음 대사")
	summarizer := &countingSummarizer{}
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaRolePlay},
		Provider: mock,
	})
	require.NoError(t, err)
	agent, err := New(Config{
		Completer: svc,
		Memory:    memory.NewManager(memory.Config{ShortTermMaxTurns: 2, Summarizer: summarizer}),
	})
	require.NoError(t, err)

	st := rolePlayState(t, "카드사 사칭", "")
	for i := 0; i < 10; i++ {
		require.NoError(t, st.CompleteRolePlay("답변", "대사", "", 0))
		require.NoError(t, st.SetPhase(conversation.PhaseRolePlay))
	}
	st.SetUserInput("마지막 답변")

	require.NoError(t, agent.Run(context.Background(), st))
	assert.Equal(t, 1, summarizer.calls)
	assert.Equal(t, "요약", st.Summary())
	assert.Equal(t, 17, st.SummarizedThrough())
	assert.Contains(t, mock.Requests()[0].SystemPrompt, "[이전 대화 요약]\n요약")
}
