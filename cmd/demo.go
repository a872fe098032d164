package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adalundhe/voiceguard/core/workflow"
)

const demoTopic = "정부 지원금 사기"

const workflowDiagram = `
                        ┌─────────────────────────────────────┐
                        │                                     │
                        v                                     │
    [START] ──> [supervisor] ──> [topic_selection] ──> (user) ┘
                   │
                   │ (topic 있음)
                   v
              [roleplay] ──> [evaluate] ──┬──> [supervisor] ──> [roleplay] (safe)
                   ^                      │
                   │                      v
                   └── [supervisor] <── [guardian] (danger)
`

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show the training workflow without calling a model",
	Long:  `Print the initial session state, the workflow graph and what each node does. No API key is needed.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printDemo(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func printDemo(out io.Writer) {
	tr := newTranscript(out)
	tr.rule()
	fmt.Fprintln(out, "🧪 VoiceGuard 구조 데모")
	tr.rule()

	st := workflow.InitialState(demoTopic, "")
	fmt.Fprintln(out, "\n📦 초기 상태:")
	fmt.Fprintf(out, "  - current_phase: %s\n", st.Phase())
	fmt.Fprintf(out, "  - scenario_topic: %s\n", st.Topic())
	fmt.Fprintf(out, "  - turn_count: %d\n", st.TurnCount())
	fmt.Fprintf(out, "  - needs_topic_selection: %t\n", st.NeedsTopicSelection())

	fmt.Fprintln(out, "\n📊 워크플로우 구조:")
	fmt.Fprint(out, workflowDiagram+"\n")

	fmt.Fprintln(out, "🔧 노드 설명:")
	fmt.Fprintln(out, "  - supervisor: 대화 흐름 총괄 및 하위 에이전트 지시 (LLM 사용)")
	fmt.Fprintln(out, "  - topic_selection: 시나리오 주제 선택 (주제가 없을 때)")
	fmt.Fprintln(out, "  - roleplay: 보이스피싱범 역할 대사 생성 (사례 검색 도구 사용)")
	fmt.Fprintln(out, "  - evaluate: 사용자 응답 평가 (패턴 검사 + 문맥 검사)")
	fmt.Fprintln(out, "  - guardian: 위험 상황 시 교육 메시지 제공")

	fmt.Fprintln(out, "\n📝 사용법:")
	fmt.Fprintln(out, "  voiceguard train                     # 대화형 시나리오 선택")
	fmt.Fprintln(out, "  voiceguard train --topic 검찰사칭     # 특정 시나리오로 시작")
	fmt.Fprintln(out, "  voiceguard train --session <id>      # 저장된 세션 이어하기")
	fmt.Fprintln(out, "  voiceguard sessions list             # 훈련 기록 보기")
	fmt.Fprintln(out, "  voiceguard auth set anthropic        # API 키 설정")
	fmt.Fprintln(out, "  voiceguard demo                      # 이 데모 화면")
}
