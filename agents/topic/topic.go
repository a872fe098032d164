// Package topic asks the trainee which scam scenario to practise.
package topic

import (
	"context"
	"strings"

	"github.com/adalundhe/voiceguard/core/conversation"
)

// DefaultQuestion is shown when the supervisor produced no question.
const DefaultQuestion = "안녕하세요! 어떤 보이스피싱 유형에 대해 훈련하고 싶으신가요? (예: 카드사 사칭, 검찰 사칭, 대출 사기 등)"

// Agent relays the supervisor's topic question to the trainee. It never
// calls a model.
type Agent struct{}

func New() *Agent {
	return &Agent{}
}

// Run appends the question as one assistant turn and marks the topic as
// asked.
func (a *Agent) Run(ctx context.Context, st *conversation.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	question := strings.TrimSpace(st.Instruction())
	if question == "" {
		question = DefaultQuestion
	}
	if err := st.Append(conversation.Assistant(conversation.AgentTopicSelection, question)); err != nil {
		return err
	}
	st.MarkTopicAsked()
	return nil
}
