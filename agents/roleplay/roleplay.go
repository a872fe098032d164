// Package roleplay produces the scammer's lines.
package roleplay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/memory"
	"github.com/adalundhe/voiceguard/core/pii"
	"github.com/adalundhe/voiceguard/core/providers"
	"github.com/adalundhe/voiceguard/core/retrieval"
)

const (
	DefaultMaxToolRounds = 5
	DefaultFallbackTopic = "일반 보이스피싱"
)

type Config struct {
	Completer completion.Completer
	Memory    *memory.Manager
	Searcher  retrieval.Searcher

	// MaxToolRounds bounds consecutive tool calls in one turn.
	MaxToolRounds int
	TopK          int
	FallbackTopic string
	Logger        *slog.Logger
}

// Agent plays the scammer. Each Run adds exactly one scammer line.
type Agent struct {
	completer     completion.Completer
	memory        *memory.Manager
	searcher      retrieval.Searcher
	maxToolRounds int
	topK          int
	fallbackTopic string
	logger        *slog.Logger
}

func New(cfg Config) (*Agent, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("roleplay agent: completer is required")
	}
	if cfg.Memory == nil {
		cfg.Memory = memory.NewManager(memory.Config{Logger: cfg.Logger})
	}
	if cfg.Searcher == nil {
		cfg.Searcher = retrieval.Stub{}
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	if strings.TrimSpace(cfg.FallbackTopic) == "" {
		cfg.FallbackTopic = DefaultFallbackTopic
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Agent{
		completer:     cfg.Completer,
		memory:        cfg.Memory,
		searcher:      cfg.Searcher,
		maxToolRounds: cfg.MaxToolRounds,
		topK:          cfg.TopK,
		fallbackTopic: cfg.FallbackTopic,
		logger:        cfg.Logger.With("component", "roleplay"),
	}, nil
}

// Run generates the next scammer line and records it together with the
// pending trainee reply. Completion failures leave st untouched.
func (a *Agent) Run(ctx context.Context, st *conversation.State) error {
	userText := st.UserInput()

	working := st.Messages()
	if userText != "" {
		working = append(working, conversation.User(userText))
	}
	mem := a.memory.Update(ctx, working, st.TurnCount(), st.Summary(), st.SummarizedThrough())
	a.logger.Debug("memory", "turn", st.TurnCount()+1, "short_term", len(mem.ShortTerm), "cursor", mem.Cursor, "tokens", mem.Tokens)

	topic := st.Topic()
	if topic == "" {
		topic = a.fallbackTopic
	}
	reference, err := retrieval.Reference(ctx, a.searcher, st.Topic(), a.topK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		a.logger.Warn("reference cases unavailable", "topic", topic, "error", err)
	}

	system := renderSystemPrompt(promptData{
		Instruction: st.Instruction(),
		Topic:       topic,
		Turn:        st.TurnCount(),
		Reference:   reference,
		Context:     memory.BuildContext(mem.ShortTerm, mem.Summary),
	})

	reply, err := a.generate(ctx, system, trigger(userText, st.TurnCount()))
	if err != nil {
		return fmt.Errorf("roleplay turn %d: %w", st.TurnCount()+1, err)
	}

	masked := pii.Mask(reply)
	if masked != reply {
		a.logger.Info("masked identifiers in scammer line", "turn", st.TurnCount()+1)
	}
	return st.CompleteRolePlay(userText, masked, mem.Summary, mem.Cursor)
}

// generate runs the tool loop: retrieval calls proposed by the model are
// executed and fed back until it answers with text or the round limit is
// hit, in which case the last text seen is used.
func (a *Agent) generate(ctx context.Context, system, line string) (string, error) {
	turns := []providers.Message{providers.UserMessage(line)}
	tools := []providers.Tool{retrieval.Tool()}

	var last *providers.Response
	for round := 0; round < a.maxToolRounds; round++ {
		resp, err := a.completer.Complete(ctx, completion.Request{
			System: system,
			Turns:  turns,
			Tools:  tools,
		})
		if err != nil {
			return "", err
		}
		last = resp
		if !resp.HasToolCalls() {
			return strings.TrimSpace(resp.Content), nil
		}

		turns = append(turns, providers.AssistantMessage(resp.Content, resp.ToolCalls...))
		for _, call := range resp.ToolCalls {
			a.logger.Debug("tool call", "tool", call.Name, "round", round+1)
			turns = append(turns, providers.ToolResult(call.ID, retrieval.Execute(ctx, a.searcher, call)))
		}
	}

	a.logger.Warn("tool round limit reached, using last response text", "rounds", a.maxToolRounds)
	if last == nil {
		return "", nil
	}
	return strings.TrimSpace(last.Content), nil
}
