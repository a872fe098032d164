package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/memory"
)

// UnavailableReason prefixes the reason of a verdict issued without the
// contextual check.
const UnavailableReason = "[문맥 검사 불가] 민감 정보 패턴은 발견되지 않았으나 문맥 검사를 수행하지 못했습니다."

// historyExchanges is how much preceding dialogue the model sees.
const historyExchanges = 3

const verdictSchema = `{
  "type": "object",
  "required": ["is_danger", "reason", "detected_info"],
  "properties": {
    "is_danger": {"type": "boolean"},
    "reason": {"type": "string", "minLength": 1},
    "detected_info": {"type": "array", "items": {"type": "string"}}
  }
}`

const contextPrompt = `당신은 보이스피싱 예방 훈련의 **평가 에이전트**입니다.
사기범 역할과 대화 중인 사용자의 마지막 응답이 위험한지 판단하세요.

## 위험 기준
- 이름, 주소, 생년월일, 가족 관계, 직장, 거래 은행 등 개인정보를 알려줌
- 송금, 앱 설치, 링크 접속, 대출 신청 등에 동의하거나 따르겠다고 함
- 두려움, 외로움, 금전적 어려움 등 감정적 약점을 드러냄
- 의심 없이 상대를 기관 직원으로 믿고 지시를 기다림

## 최근 대화
{history}

## 평가할 사용자 응답
"{reply}"

## 출력 형식
다음 JSON 객체 하나만 출력하세요. 설명이나 코드 블록 없이 JSON만 출력합니다.
{"is_danger": true 또는 false, "reason": "판단 이유", "detected_info": ["노출된 정보", ...]}
`

// ContextEvaluator asks the evaluator persona for a JSON verdict.
type ContextEvaluator struct {
	completer completion.Completer
	schema    *gojsonschema.Schema
	logger    *slog.Logger
}

func NewContextEvaluator(c completion.Completer, logger *slog.Logger) (*ContextEvaluator, error) {
	if c == nil {
		return nil, fmt.Errorf("context evaluator: completer is required")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(verdictSchema))
	if err != nil {
		return nil, fmt.Errorf("loading verdict schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextEvaluator{
		completer: c,
		schema:    schema,
		logger:    logger.With("component", "context_evaluator"),
	}, nil
}

func (e *ContextEvaluator) Evaluate(ctx context.Context, reply string, history []conversation.Turn) (conversation.EvaluationResult, error) {
	prompt := strings.NewReplacer(
		"{history}", memory.BuildContext(memory.ShortTerm(history, historyExchanges), ""),
		"{reply}", reply,
	).Replace(contextPrompt)

	text, err := completion.Text(ctx, e.completer, "", prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return conversation.EvaluationResult{}.Normalize(), ctxErr
		}
		e.logger.Warn("contextual check failed", "error", err)
		return unavailable(), nil
	}

	result, err := e.parse(text)
	if err != nil {
		e.logger.Warn("contextual verdict rejected", "error", err)
		return unavailable(), nil
	}
	return result, nil
}

// parse extracts, validates and decodes the verdict in text.
func (e *ContextEvaluator) parse(text string) (conversation.EvaluationResult, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return conversation.EvaluationResult{}, err
	}

	res, err := e.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return conversation.EvaluationResult{}, fmt.Errorf("verdict is not JSON: %w", err)
	}
	if !res.Valid() {
		var problems []string
		for _, re := range res.Errors() {
			problems = append(problems, re.String())
		}
		return conversation.EvaluationResult{}, fmt.Errorf("verdict schema errors: %s", strings.Join(problems, "; "))
	}

	var out conversation.EvaluationResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return conversation.EvaluationResult{}, err
	}
	out.Reason = strings.TrimSpace(out.Reason)
	return out.Normalize(), nil
}

// extractJSON returns the outermost object in text, ignoring code fences
// and surrounding prose.
func extractJSON(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in verdict")
	}
	return []byte(text[start : end+1]), nil
}

func unavailable() conversation.EvaluationResult {
	return conversation.EvaluationResult{Reason: UnavailableReason}.Normalize()
}
