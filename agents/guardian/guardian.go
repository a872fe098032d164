// Package guardian steps in when a trainee reply was judged dangerous and
// explains what went wrong.
package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/pii"
	"github.com/adalundhe/voiceguard/core/retrieval"
)

// Request is what the guardian knows about the dangerous reply.
type Request struct {
	Evaluation conversation.EvaluationResult
	Topic      string
	Reply      string
}

// Intervener writes the educational message for a dangerous reply.
type Intervener interface {
	Intervene(ctx context.Context, req Request) (string, error)
}

const systemPrompt = `당신은 보이스피싱 예방 훈련의 **Guardian Agent**입니다.
사용자가 훈련 중 사기범에게 위험한 응답을 했습니다. 훈련을 잠시 멈추고 사용자를 교육하세요.

## 원칙
- 사용자를 탓하지 말고 따뜻하고 차분한 말투로 설명하세요.
- 어떤 응답이 왜 위험했는지 구체적으로 알려주세요.
- 실제 상황이라면 어떻게 대응해야 하는지 행동 요령을 2~3가지 제시하세요. (예: 전화를 끊고 해당 기관 대표번호로 직접 확인, 112 또는 1332 신고)
- 노출된 정보를 그대로 다시 적지 마세요.
- 마지막에 훈련을 계속 진행한다고 안내하세요.

## 참고 뉴스 사례
{reference}
`

const userPrompt = `## 시나리오 주제
{topic}

## 평가 결과
- 판단 이유: {reason}
- 감지된 정보 유형 수: {count}

## 사용자 응답 (민감 정보 가림)
{reply}

위 내용을 바탕으로 사용자에게 보여줄 교육 메시지만 작성하세요.`

const DefaultFallbackTopic = "일반 보이스피싱"

// LLMIntervener asks the guardian persona, grounded on reference cases
// for the topic. fallbackTopic stands in when the session has none.
type LLMIntervener struct {
	completer     completion.Completer
	searcher      retrieval.Searcher
	topK          int
	fallbackTopic string
}

func NewLLMIntervener(c completion.Completer, s retrieval.Searcher, topK int, fallbackTopic string) *LLMIntervener {
	if s == nil {
		s = retrieval.Stub{}
	}
	if strings.TrimSpace(fallbackTopic) == "" {
		fallbackTopic = DefaultFallbackTopic
	}
	return &LLMIntervener{completer: c, searcher: s, topK: topK, fallbackTopic: fallbackTopic}
}

func (l *LLMIntervener) Intervene(ctx context.Context, req Request) (string, error) {
	reference, _ := retrieval.Reference(ctx, l.searcher, req.Topic, l.topK)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	topic := req.Topic
	if topic == "" {
		topic = l.fallbackTopic
	}
	system := strings.ReplaceAll(systemPrompt, "{reference}", reference)
	prompt := strings.NewReplacer(
		"{topic}", topic,
		"{reason}", req.Evaluation.Reason,
		"{count}", fmt.Sprint(len(req.Evaluation.DetectedInfo)),
		"{reply}", req.Reply,
	).Replace(userPrompt)

	return completion.Text(ctx, l.completer, system, prompt)
}

// FallbackMessage is the fixed educational message used when no model
// text is available. Detected items are shown obscured.
func FallbackMessage(e conversation.EvaluationResult) string {
	var b strings.Builder
	b.WriteString("⚠️ 잠깐만요! 방금 응답에서 위험 신호가 감지되었습니다.\n\n")

	if reason := strings.TrimSpace(e.Reason); reason != "" {
		fmt.Fprintf(&b, "판단 이유: %s\n", reason)
	}
	if len(e.DetectedInfo) > 0 {
		b.WriteString("노출된 정보:\n")
		for _, item := range e.DetectedInfo {
			fmt.Fprintf(&b, "- %s\n", pii.Obscure(item))
		}
	}

	b.WriteString("\n실제 상황이라면 이렇게 대응하세요.\n")
	b.WriteString("1. 전화로 주민등록번호, 계좌번호, 카드번호, 인증번호를 절대 알려주지 마세요.\n")
	b.WriteString("2. 기관을 사칭하면 전화를 끊고 해당 기관의 대표번호로 직접 확인하세요.\n")
	b.WriteString("3. 이미 정보를 알려줬다면 즉시 112 또는 금융감독원 1332에 신고하세요.\n\n")
	b.WriteString("훈련을 계속 진행하겠습니다.")
	return b.String()
}

type NodeConfig struct {
	Intervener Intervener
	Logger     *slog.Logger
}

// Node is the guardian step of a turn.
type Node struct {
	intervener Intervener
	logger     *slog.Logger
}

func NewNode(cfg NodeConfig) *Node {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Node{
		intervener: cfg.Intervener,
		logger:     cfg.Logger.With("component", "guardian"),
	}
}

// Run records the trainee's reply with sensitive items masked, followed
// by the guardian's message, and moves the session to the guardian
// phase.
func (n *Node) Run(ctx context.Context, st *conversation.State) error {
	eval := conversation.EvaluationResult{}.Normalize()
	if e := st.Evaluation(); e != nil {
		eval = *e
	}

	masked := pii.MaskValues(st.UserInput(), eval.DetectedInfo)
	req := Request{Evaluation: eval, Topic: st.Topic(), Reply: masked}

	text := ""
	if n.intervener != nil {
		var err error
		text, err = n.intervener.Intervene(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			n.logger.Warn("guardian message unavailable, using fallback", "error", err)
		}
	}
	if text = strings.TrimSpace(text); text == "" {
		text = FallbackMessage(eval)
	}

	if err := st.SetPhase(conversation.PhaseGuardian); err != nil {
		return err
	}
	var turns []conversation.Turn
	if masked != "" {
		turns = append(turns, conversation.User(masked))
	}
	turns = append(turns, conversation.Assistant(conversation.AgentGuardian, text))
	if err := st.Append(turns...); err != nil {
		return err
	}
	st.ClearUserInput()

	n.logger.Info("guardian intervened", "turn", st.TurnCount(), "detected", len(eval.DetectedInfo))
	return nil
}
