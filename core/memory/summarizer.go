package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
)

// LLMSummarizer asks the summary persona for a two to four sentence
// recap of the scenario so far.
type LLMSummarizer struct {
	completer completion.Completer
}

func NewLLMSummarizer(c completion.Completer) *LLMSummarizer {
	return &LLMSummarizer{completer: c}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, turns []conversation.Turn, existing string) (string, error) {
	dialogue := Dialogue(nonEmpty(turns))
	if strings.TrimSpace(dialogue) == "" {
		return existing, nil
	}

	text, err := completion.Text(ctx, s.completer, "", summaryPrompt(dialogue, existing))
	if err != nil {
		return "", fmt.Errorf("summarize %d turns: %w", len(turns), err)
	}
	if text == "" {
		return existing, nil
	}
	return text, nil
}

func nonEmpty(turns []conversation.Turn) []conversation.Turn {
	out := make([]conversation.Turn, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) != "" {
			out = append(out, t)
		}
	}
	return out
}

func summaryPrompt(dialogue, existing string) string {
	var b strings.Builder
	b.WriteString("다음은 보이스피싱 예방 훈련 롤플레이의 대화 내용입니다.\n\n")
	if existing != "" {
		b.WriteString("기존 요약:\n")
		b.WriteString(existing)
		b.WriteString("\n\n")
	}
	b.WriteString("최근 대화:\n")
	b.WriteString(dialogue)
	b.WriteString("\n\n위 내용을 바탕으로 \"지금까지의 시나리오 진행 상황, 사기범의 수법, 사용자의 대응\"을 2~4문장으로 요약해주세요.\n")
	b.WriteString("기존 요약이 있으면 자연스럽게 이어가고, 핵심 정보만 간결하게 정리하세요.\n")
	b.WriteString("한국어로만 출력하고 설명은 붙이지 마세요.")
	return b.String()
}
