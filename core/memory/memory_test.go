package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/providers"
)

type recordingSummarizer struct {
	calls [][]conversation.Turn
	err   error
}

func (r *recordingSummarizer) Summarize(_ context.Context, turns []conversation.Turn, existing string) (string, error) {
	r.calls = append(r.calls, append([]conversation.Turn(nil), turns...))
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("%s+%d", existing, len(turns)), nil
}

func dialogue(exchanges int) []conversation.Turn {
	var out []conversation.Turn
	for i := 0; i < exchanges; i++ {
		out = append(out,
			conversation.User(fmt.Sprintf("u%d", i)),
			conversation.Assistant(conversation.AgentRolePlay, fmt.Sprintf("a%d", i)),
		)
	}
	return out
}

func TestShortTermWindow(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 21, 45} {
		msgs := dialogue(n)
		got := ShortTerm(msgs, 10)
		assert.LessOrEqual(t, len(got), 20)
		if len(msgs) <= 20 {
			assert.Equal(t, len(msgs), len(got))
		} else {
			assert.Equal(t, msgs[len(msgs)-20:], got)
		}
	}
}

func TestShouldSummarize(t *testing.T) {
	for n := -1; n <= 40; n++ {
		want := n > 0 && n%5 == 0 && n > 5
		assert.Equal(t, want, ShouldSummarize(n, 5), "turn %d", n)
	}
	m := NewManager(Config{})
	assert.False(t, m.ShouldSummarize(5))
	assert.True(t, m.ShouldSummarize(10))
}

func TestUpdateSummarizesEachMessageOnce(t *testing.T) {
	rec := &recordingSummarizer{}
	m := NewManager(Config{ShortTermMaxTurns: 2, SummaryInterval: 5, Summarizer: rec})
	ctx := context.Background()

	msgs := dialogue(10)
	u := m.Update(ctx, msgs, 10, "", 0)
	require.Len(t, rec.calls, 1)
	assert.Len(t, rec.calls[0], 16)
	assert.Equal(t, 16, u.Cursor)
	assert.Equal(t, "+16", u.Summary)
	assert.Len(t, u.ShortTerm, 4)

	// Not a summarization point: nothing changes.
	msgs = dialogue(12)
	u2 := m.Update(ctx, msgs, 12, u.Summary, u.Cursor)
	assert.Len(t, rec.calls, 1)
	assert.Equal(t, u.Summary, u2.Summary)
	assert.Equal(t, u.Cursor, u2.Cursor)

	msgs = dialogue(15)
	u3 := m.Update(ctx, msgs, 15, u2.Summary, u2.Cursor)
	require.Len(t, rec.calls, 2)
	assert.Equal(t, msgs[16:26], rec.calls[1], "only the messages that left the window since the last summary")
	assert.Equal(t, 26, u3.Cursor)
	assert.Equal(t, "+16+10", u3.Summary)
}

func TestUpdateKeepsSummaryOnFailure(t *testing.T) {
	rec := &recordingSummarizer{err: errors.New("boom")}
	m := NewManager(Config{ShortTermMaxTurns: 2, Summarizer: rec})

	u := m.Update(context.Background(), dialogue(10), 10, "old", 3)
	assert.Equal(t, "old", u.Summary)
	assert.Equal(t, 3, u.Cursor)
	assert.Len(t, rec.calls, 1)
}

func TestUpdateWithoutSummarizer(t *testing.T) {
	m := NewManager(Config{ShortTermMaxTurns: 2})
	u := m.Update(context.Background(), dialogue(10), 10, "s", 0)
	assert.Equal(t, "s", u.Summary)
	assert.Equal(t, 0, u.Cursor)
}

func TestUpdateNothingPending(t *testing.T) {
	rec := &recordingSummarizer{}
	m := NewManager(Config{Summarizer: rec})

	// 10 exchanges fit the default window entirely.
	u := m.Update(context.Background(), dialogue(10), 10, "", 0)
	assert.Empty(t, rec.calls)
	assert.Equal(t, 0, u.Cursor)
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, EmptyContext, BuildContext(nil, ""))

	turns := []conversation.Turn{
		conversation.Assistant(conversation.AgentRolePlay, "고객님 카드가 정지되었습니다."),
		conversation.User("누구세요?"),
	}
	assert.Equal(t,
		"[최근 대화]\n사기범: 고객님 카드가 정지되었습니다.\n사용자: 누구세요?",
		BuildContext(turns, ""))

	assert.Equal(t,
		"[이전 대화 요약]\n요약\n\n[최근 대화]\n사용자: 누구세요?",
		BuildContext(turns[1:], "요약"))

	assert.Equal(t, "[이전 대화 요약]\n요약", BuildContext(nil, "요약"))
}

func TestSpeaker(t *testing.T) {
	assert.Equal(t, "사용자", Speaker(conversation.User("x")))
	assert.Equal(t, "사기범", Speaker(conversation.Assistant(conversation.AgentRolePlay, "x")))
	assert.Equal(t, "가디언", Speaker(conversation.Assistant(conversation.AgentGuardian, "x")))
	assert.Equal(t, "안내", Speaker(conversation.Assistant(conversation.AgentTopicSelection, "x")))
}

func TestUpdateEstimatesTokens(t *testing.T) {
	m := NewManager(Config{ShortTermMaxTurns: 1})
	msgs := []conversation.Turn{
		conversation.User("aaaaaaaa"),
		conversation.Assistant(conversation.AgentRolePlay, "bbbb"),
		conversation.User("네 맞아요"),
	}

	u := m.Update(context.Background(), msgs, 1, "dddd", 0)
	assert.Len(t, u.ShortTerm, 2)
	// bbbb=1, 네 맞아요=4 syllables + 1 space, dddd=1
	assert.Equal(t, 7, u.Tokens)
}

func TestLLMSummarizer(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("  새 요약  ")
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaSummary},
		Provider: mock,
	})
	require.NoError(t, err)

	s := NewLLMSummarizer(svc)
	out, err := s.Summarize(context.Background(), dialogue(2), "이전 요약")
	require.NoError(t, err)
	assert.Equal(t, "새 요약", out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "기존 요약:\n이전 요약")
	assert.Contains(t, prompt, "사용자: u0\n사기범: a0")
}

func TestLLMSummarizerSkipsEmptyDialogue(t *testing.T) {
	mock := providers.NewMockProvider()
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaSummary},
		Provider: mock,
	})
	require.NoError(t, err)

	out, err := NewLLMSummarizer(svc).Summarize(context.Background(),
		[]conversation.Turn{conversation.User("  ")}, "keep")
	require.NoError(t, err)
	assert.Equal(t, "keep", out)
	assert.Zero(t, mock.CallCount())
}

func TestLLMSummarizerError(t *testing.T) {
	mock := providers.NewMockProvider().QueueError(errors.New("invalid"))
	svc, err := completion.NewService(completion.ServiceConfig{
		Persona:  completion.Persona{Name: completion.PersonaSummary},
		Provider: mock,
	})
	require.NoError(t, err)

	_, err = NewLLMSummarizer(svc).Summarize(context.Background(), dialogue(1), "")
	assert.Error(t, err)
}
