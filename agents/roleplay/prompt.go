package roleplay

import (
	"strconv"
	"strings"
)

const (
	defaultInstruction = "롤플레이를 진행해주세요."

	startTrigger    = "시나리오를 시작해주세요."
	continueTrigger = "대화를 계속해주세요."
)

const systemPrompt = `당신은 **보이스피싱 예방 훈련용 롤플레잉 에이전트**입니다.

## 역할
- 매일경제 뉴스에 보도된 실제 보이스피싱·금융사기 사례를 바탕으로 **사기범 역할**을 연기합니다.
- 사용자(어르신)가 실전처럼 대화하며 사기 탐지 능력을 키우는 것이 목표입니다.

## Master Agent 지시
{instruction}

## 대사 생성 원칙
1. **RAG 참고**: 제공된 뉴스 사례와 search_voice_phishing_cases 도구를 참고하여, 최신 수법(카드사 정보 유출, 정부 지원금 빙자, 대출 사기 등)에 맞는 구체적인 대사를 생성하세요.
2. **한 번에 한 턴**: 사용자에게 보여줄 **사기범의 한 마디**만 생성합니다. 문장 하나~몇 문장으로 끝내세요.
3. **인간적 반응**: 사용자가 의심하거나 거절하면, 더 강압적으로 말하거나 회유·위로·긴급감 조성 등 자연스러운 반응을 보이세요.
4. **예방 목적 유지**: 실제로 사용자를 속이려 하지 말고, "훈련용 시나리오"라는 전제를 지키며 대사를 만듭니다. 실제 계좌번호·비밀번호 요구 문구는 사용하지 마세요.

## 시나리오 정보
- 주제: {topic}
- 현재 턴: {turn}

## 참고 뉴스 사례
{reference}

## 대화 컨텍스트
{context}

## 출력 형식
- **오직 사기범의 대사만** 출력하세요. 설명, 괄호, "사기범:", "AI:" 등의 접두사 없이 대사 내용만 출력합니다.
- 한국어로, 전화/보이스피싱 상황에 맞는 말투(친절·위기감·서두름 등)를 사용하세요.
`

type promptData struct {
	Instruction string
	Topic       string
	Turn        int
	Reference   string
	Context     string
}

func renderSystemPrompt(d promptData) string {
	if strings.TrimSpace(d.Instruction) == "" {
		d.Instruction = defaultInstruction
	}
	return strings.NewReplacer(
		"{instruction}", d.Instruction,
		"{topic}", d.Topic,
		"{turn}", strconv.Itoa(d.Turn),
		"{reference}", d.Reference,
		"{context}", d.Context,
	).Replace(systemPrompt)
}

// trigger is the user line that asks the model for the next scammer line.
func trigger(userText string, turnCount int) string {
	switch {
	case userText != "":
		return userText
	case turnCount == 0:
		return startTrigger
	default:
		return continueTrigger
	}
}
