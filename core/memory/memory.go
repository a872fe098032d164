// Package memory keeps the role-play context small: a short-term window
// of the most recent turns and a long-term summary refined every few
// turns.
package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/providers"
)

const (
	DefaultShortTermMaxTurns = 10
	DefaultSummaryInterval   = 5

	// EmptyContext stands in for a conversation with no history.
	EmptyContext = "(대화 시작)"
)

// Summarizer folds turns into an existing summary.
type Summarizer interface {
	Summarize(ctx context.Context, turns []conversation.Turn, existing string) (string, error)
}

type Config struct {
	// ShortTermMaxTurns is counted in exchanges; the window holds twice as
	// many messages.
	ShortTermMaxTurns int
	SummaryInterval   int

	// Summarizer may be nil, in which case the summary never changes.
	Summarizer Summarizer
	Counter    providers.TokenCounter
	Logger     *slog.Logger
}

// Manager applies the memory policy to a conversation.
type Manager struct {
	maxTurns   int
	interval   int
	summarizer Summarizer
	counter    providers.TokenCounter
	logger     *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.ShortTermMaxTurns <= 0 {
		cfg.ShortTermMaxTurns = DefaultShortTermMaxTurns
	}
	if cfg.SummaryInterval <= 0 {
		cfg.SummaryInterval = DefaultSummaryInterval
	}
	if cfg.Counter == nil {
		cfg.Counter = providers.NewRuneCounter(providers.DefaultCharsPerToken)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		maxTurns:   cfg.ShortTermMaxTurns,
		interval:   cfg.SummaryInterval,
		summarizer: cfg.Summarizer,
		counter:    cfg.Counter,
		logger:     cfg.Logger,
	}
}

// ShortTerm returns the trailing window of at most 2*maxTurns messages.
// The result aliases msgs.
func ShortTerm(msgs []conversation.Turn, maxTurns int) []conversation.Turn {
	limit := maxTurns * 2
	if len(msgs) <= limit {
		return msgs
	}
	return msgs[len(msgs)-limit:]
}

// ShouldSummarize reports whether turnCount is a summarization point:
// a positive multiple of interval past the first interval.
func ShouldSummarize(turnCount, interval int) bool {
	return turnCount > 0 && turnCount%interval == 0 && turnCount > interval
}

func (m *Manager) ShortTerm(msgs []conversation.Turn) []conversation.Turn {
	return ShortTerm(msgs, m.maxTurns)
}

func (m *Manager) ShouldSummarize(turnCount int) bool {
	return ShouldSummarize(turnCount, m.interval)
}

// Update is the memory after one cycle. Cursor is the index up to which
// messages have been folded into Summary. Tokens estimates the prompt
// cost of ShortTerm and Summary together.
type Update struct {
	ShortTerm []conversation.Turn
	Summary   string
	Cursor    int
	Tokens    int
}

// Update trims msgs to the short-term window and, at a summarization
// point, folds the messages that fell out of the window since cursor into
// the summary. A failed summarization keeps the old summary and cursor.
func (m *Manager) Update(ctx context.Context, msgs []conversation.Turn, turnCount int, summary string, cursor int) Update {
	out := m.fold(ctx, msgs, turnCount, summary, cursor)
	out.Tokens = m.estimate(out.ShortTerm, out.Summary)
	return out
}

func (m *Manager) fold(ctx context.Context, msgs []conversation.Turn, turnCount int, summary string, cursor int) Update {
	short := m.ShortTerm(msgs)
	out := Update{ShortTerm: short, Summary: summary, Cursor: cursor}

	if !m.ShouldSummarize(turnCount) || m.summarizer == nil {
		return out
	}

	end := len(msgs) - len(short)
	if cursor < 0 {
		cursor = 0
	}
	if end <= cursor {
		return out
	}

	refined, err := m.summarizer.Summarize(ctx, msgs[cursor:end], summary)
	if err != nil {
		m.logger.Warn("memory summarization failed, keeping previous summary",
			"turn", turnCount, "pending", end-cursor, "error", err)
		return out
	}

	m.logger.Debug("memory summarized", "turn", turnCount, "from", cursor, "to", end)
	out.Summary = refined
	out.Cursor = end
	return out
}

// Speaker is the dialogue label of a turn.
func Speaker(t conversation.Turn) string {
	switch t.Role {
	case conversation.RoleUser:
		return "사용자"
	case conversation.RoleAssistant:
		switch t.Agent {
		case conversation.AgentGuardian:
			return "가디언"
		case conversation.AgentTopicSelection:
			return "안내"
		default:
			return "사기범"
		}
	}
	return string(t.Role)
}

// Dialogue renders turns one per line as "speaker: text".
func Dialogue(turns []conversation.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, Speaker(t)+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// BuildContext renders the summary and recent dialogue for a prompt.
func BuildContext(shortTerm []conversation.Turn, summary string) string {
	var parts []string
	if summary != "" {
		parts = append(parts, "[이전 대화 요약]\n"+summary)
	}
	if len(shortTerm) > 0 {
		parts = append(parts, "[최근 대화]\n"+Dialogue(shortTerm))
	}
	if len(parts) == 0 {
		return EmptyContext
	}
	return strings.Join(parts, "\n\n")
}

// Context is BuildContext over the short-term window of msgs.
func (m *Manager) Context(msgs []conversation.Turn, summary string) string {
	return BuildContext(m.ShortTerm(msgs), summary)
}

func (m *Manager) estimate(short []conversation.Turn, summary string) int {
	tokens, _ := m.counter.CountText(summary)
	for _, t := range short {
		n, _ := m.counter.CountText(t.Content)
		tokens += n
	}
	return tokens
}
