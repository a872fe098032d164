package supervisor

import "strings"

// Task names the directive the supervisor asks its model to write.
type Task string

const (
	TaskTopicSelection   Task = "topic_selection"
	TaskStartRolePlay    Task = "start_roleplay"
	TaskContinueRolePlay Task = "continue_roleplay"
	TaskAfterGuardian    Task = "after_guardian"
)

const (
	// DefaultFallbackTopic is used when the trainee's topic answer cannot
	// be parsed.
	DefaultFallbackTopic = "일반 보이스피싱"

	// EvaluationInstruction is the fixed directive for the evaluation
	// step.
	EvaluationInstruction = "사용자의 응답을 평가해. 개인정보 노출 여부를 확인해."

	unselectedTopic = "(미선택)"
	genericTopic    = "보이스피싱"
)

const masterPrompt = `당신은 보이스피싱 예방 훈련 시스템의 **Master Agent**입니다.

## 역할
- 전체 훈련 흐름을 관리하고, 하위 에이전트(Roleplay, Evaluator, Guardian)에게 지시를 내립니다.
- 직접 사용자와 대화하지 않고, 하위 에이전트를 통해 소통합니다.
- 단, 시나리오 주제 선택 시에만 사용자에게 직접 질문합니다.

## 현재 상태
- 진행 단계: {phase}
- 시나리오 주제: {topic}
- 현재 턴: {turn}

## 대화 컨텍스트
{context}

## 작업
{task}

## 출력 형식
지시 내용만 간결하게 출력하세요. 설명이나 접두사 없이 지시문만 작성합니다.
`

var taskDescriptions = map[Task]string{
	TaskTopicSelection: `사용자에게 훈련하고 싶은 보이스피싱 시나리오 유형을 물어보세요.
친절하고 자연스럽게 질문하세요. 예시 유형도 몇 가지 제시해주세요.
(예: 카드사 사칭, 정부기관 사칭, 대출 사기, 택배 사칭 등)`,

	TaskStartRolePlay: `Roleplay Agent에게 시나리오 시작을 지시하세요.
뉴스 데이터를 참고하여 {topic} 시나리오로 롤플레이를 시작하라고 지시하세요.`,

	TaskContinueRolePlay: `Roleplay Agent에게 대화 계속을 지시하세요.
사용자의 응답을 고려하여 자연스럽게 대화를 이어가라고 지시하세요.
사용자가 의심하면 더 설득력 있게, 거절하면 다른 방식으로 접근하라고 지시하세요.`,

	TaskAfterGuardian: `Guardian Agent의 교육이 끝났습니다.
Roleplay Agent에게 새로운 시나리오나 다른 상황으로 훈련을 계속하라고 지시하세요.`,
}

const topicParsePrompt = `사용자가 보이스피싱 훈련에서 원하는 시나리오 유형을 말했습니다.

사용자 입력: "{input}"

이 입력에서 시나리오 주제를 추출하세요.
예시: "검찰 사칭", "카드사 정보 유출", "대출 사기", "정부 지원금 사기" 등
명확하지 않으면 "일반 보이스피싱"으로 설정하세요.

주제만 간결하게 출력하세요:`

// describe renders the description of task for topic.
func describe(task Task, topic string) string {
	if topic == "" {
		topic = genericTopic
	}
	return strings.ReplaceAll(taskDescriptions[task], "{topic}", topic)
}

func renderMasterPrompt(phase, topic, turn, context, task string) string {
	if topic == "" {
		topic = unselectedTopic
	}
	return strings.NewReplacer(
		"{phase}", phase,
		"{topic}", topic,
		"{turn}", turn,
		"{context}", context,
		"{task}", task,
	).Replace(masterPrompt)
}

func renderTopicParsePrompt(input string) string {
	return strings.ReplaceAll(topicParsePrompt, "{input}", input)
}

// StartInstruction is the directive issued once the trainee has chosen a
// topic.
func StartInstruction(topic string) string {
	return "뉴스 데이터를 참고하여 '" + topic + "' 시나리오로 보이스피싱 롤플레이를 시작해. 사기범 역할로 첫 대사를 생성해."
}

// FallbackInstruction replaces a directive the model failed to write.
func FallbackInstruction(task Task) string {
	return "[기본 지시] " + string(task) + " 단계를 진행해주세요."
}
