package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/llm"
	"github.com/adalundhe/voiceguard/core/workflow"
)

var (
	trainTopic   string
	trainSession string
)

var quitWords = []string{"quit", "q", "종료"}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Start an interactive voice-phishing training session",
	Long: `Start a training session. The scammer persona opens the call and every
reply you type is checked for leaked personal information.

Without --topic the session starts by asking which scam scenario to
practise. Sessions are saved after every turn and can be resumed with
--session.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainTopic, "topic", "t", "", "scenario topic (e.g. 검찰사칭)")
	trainCmd.Flags().StringVar(&trainSession, "session", "", "resume a saved session by id or id prefix")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	cfg := currentConfig()

	if !llm.HasCredentials(cfg.LLM.Provider) {
		fmt.Fprintf(out, "⚠️  %s API 키가 설정되지 않았습니다. 'voiceguard auth set %s' 로 설정하세요.\n", cfg.LLM.Provider, cfg.LLM.Provider)
		fmt.Fprintln(out, "   모델 없이 구조 데모를 보여드립니다.")
		fmt.Fprintln(out)
		printDemo(out)
		return nil
	}

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("closing training runtime", "error", err)
		}
	}()

	tr := newTranscript(out)

	if trainSession != "" {
		rec, err := rt.store.Find(ctx, trainSession)
		if err != nil {
			return fmt.Errorf("loading session %q: %w", trainSession, err)
		}
		printHeader(tr, rec.State.Topic(), rec.ID)
		for _, t := range rec.State.Messages() {
			tr.turn(t)
		}
		return trainLoop(ctx, cmd.InOrStdin(), out, rt.runner, rt.store, rec.State, rec.ID)
	}

	st, err := rt.runner.RunTurn(ctx, workflow.InitialState(trainTopic, ""), "")
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	rec, err := rt.store.Create(ctx, st)
	if err != nil {
		return err
	}
	printHeader(tr, st.Topic(), rec.ID)
	tr.assistantTurns(st.Messages())
	return trainLoop(ctx, cmd.InOrStdin(), out, rt.runner, rt.store, st, rec.ID)
}

func printHeader(tr *transcript, topic, id string) {
	if topic == "" {
		topic = "(선택 대기)"
	}
	tr.rule()
	fmt.Fprintln(tr.out, "🛡️  VoiceGuard - 보이스피싱 예방 훈련")
	fmt.Fprintf(tr.out, "📋 시나리오: %s\n", topic)
	fmt.Fprintf(tr.out, "💾 세션: %s\n", id)
	fmt.Fprintf(tr.out, "💡 종료하려면 '%s'를 입력하세요\n", strings.Join(quitWords, "', '"))
	tr.rule()
	fmt.Fprintln(tr.out)
}

// turnRunner is the part of workflow.Runner the loop drives.
type turnRunner interface {
	RunTurn(ctx context.Context, st *conversation.State, userInput string) (*conversation.State, error)
	Done(st *conversation.State) bool
	MaxTurns() int
}

type sessionSaver interface {
	Save(ctx context.Context, id string, st *conversation.State) error
}

// trainLoop reads trainee replies from in until the session ends, the
// trainee quits, in is exhausted or ctx is cancelled. The state is saved
// after every successful turn. A failed turn leaves the state as it was and
// the trainee can simply answer again.
func trainLoop(ctx context.Context, in io.Reader, out io.Writer, runner turnRunner, store sessionSaver, st *conversation.State, id string) error {
	tr := newTranscript(out)
	prompt := isTerminal(out)

	if runner.Done(st) {
		tr.noticef("✅ %d턴 완료! 훈련이 종료되었습니다.", runner.MaxTurns())
		return nil
	}

	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

	for {
		if prompt {
			fmt.Fprint(out, "👤 응답: ")
		}

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			tr.noticef("훈련을 중단합니다.")
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if isQuit(line) {
			tr.noticef("훈련을 종료합니다. 수고하셨습니다! 🎉")
			return nil
		}
		if line == "" {
			tr.noticef("응답을 입력해주세요.")
			continue
		}

		hadTopic := st.HasTopic()
		before := st.Len()

		next, err := runner.RunTurn(ctx, st, line)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(out)
				tr.noticef("훈련을 중단합니다.")
				return nil
			}
			logger.Warn("training turn failed", "session", id, "error", err)
			tr.noticef("⚠️ 응답을 만들지 못했습니다. 다시 입력해주세요. (%v)", err)
			continue
		}
		st = next

		fmt.Fprintln(out)
		if !hadTopic && st.HasTopic() {
			tr.noticef("[📋 시나리오 설정됨: %s]", st.Topic())
			fmt.Fprintln(out)
		}
		tr.assistantTurns(st.Messages()[before:])

		if err := store.Save(ctx, id, st); err != nil {
			logger.Warn("saving session", "session", id, "error", err)
			tr.noticef("⚠️ 세션을 저장하지 못했습니다: %v", err)
		}

		if runner.Done(st) {
			tr.rule()
			tr.noticef("✅ %d턴 완료! 훈련이 종료되었습니다.", runner.MaxTurns())
			tr.rule()
			return nil
		}
	}
}

// readLines feeds lines from in until EOF or until done is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("reading input", "error", err)
		}
	}()
	return lines
}

func isQuit(line string) bool {
	for _, w := range quitWords {
		if strings.EqualFold(line, w) {
			return true
		}
	}
	return false
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
