// Package supervisor decides what happens next in a training session.
//
// Route is a pure function of the state. Advance moves the phase along
// and writes the directive the next agent follows. Directives are
// written by the supervisor persona; when the model is unavailable a
// fixed directive is used so a turn never fails here.
package supervisor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/adalundhe/voiceguard/agents/topic"
	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/memory"
)

const DefaultMaxTurns = 20

// Node is a step the turn runner can dispatch to.
type Node string

const (
	NodeTopicSelection Node = "topic_selection"
	NodeRolePlay       Node = "roleplay"
	NodeEvaluate       Node = "evaluate"
	NodeGuardian       Node = "guardian"
	NodeEnd            Node = "end"
)

type Config struct {
	Completer completion.Completer
	Memory    *memory.Manager

	// MaxTurns ends the session once that many role-play lines exist.
	MaxTurns      int
	FallbackTopic string
	Logger        *slog.Logger
}

type Supervisor struct {
	completer     completion.Completer
	memory        *memory.Manager
	maxTurns      int
	fallbackTopic string
	logger        *slog.Logger
}

func New(cfg Config) *Supervisor {
	if cfg.Memory == nil {
		cfg.Memory = memory.NewManager(memory.Config{Logger: cfg.Logger})
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if strings.TrimSpace(cfg.FallbackTopic) == "" {
		cfg.FallbackTopic = DefaultFallbackTopic
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Supervisor{
		completer:     cfg.Completer,
		memory:        cfg.Memory,
		maxTurns:      cfg.MaxTurns,
		fallbackTopic: cfg.FallbackTopic,
		logger:        cfg.Logger.With("component", "supervisor"),
	}
}

func (s *Supervisor) MaxTurns() int {
	return s.maxTurns
}

// CeilingReached reports whether the session has used up its turns.
func (s *Supervisor) CeilingReached(st *conversation.State) bool {
	return st.TurnCount() >= s.maxTurns
}

// Route picks the next node from the current phase.
func (s *Supervisor) Route(st *conversation.State) Node {
	if s.CeilingReached(st) {
		return NodeEnd
	}
	switch st.Phase() {
	case conversation.PhaseTopicSelection:
		return NodeTopicSelection
	case conversation.PhaseRolePlay:
		return NodeRolePlay
	case conversation.PhaseEvaluate:
		return NodeEvaluate
	case conversation.PhaseGuardian:
		return NodeGuardian
	case conversation.PhaseEnd:
		return NodeEnd
	default:
		return NodeRolePlay
	}
}

// Advance applies one supervisor step to st. It only returns an error
// when ctx is done or a phase edge is rejected.
func (s *Supervisor) Advance(ctx context.Context, st *conversation.State) error {
	if s.CeilingReached(st) {
		return nil
	}

	switch phase := st.Phase(); {
	case phase == conversation.PhaseInit && st.HasTopic():
		return s.direct(ctx, st, TaskStartRolePlay, conversation.PhaseRolePlay)

	case phase == conversation.PhaseInit:
		return s.direct(ctx, st, TaskTopicSelection, conversation.PhaseTopicSelection)

	case phase == conversation.PhaseTopicSelection && st.HasUserInput():
		chosen, err := s.parseTopic(ctx, st.UserInput())
		if err != nil {
			return err
		}
		st.SetTopic(chosen)
		st.SetInstruction(StartInstruction(st.Topic()))
		st.ClearUserInput()
		s.logger.Info("scenario topic selected", "topic", st.Topic())
		return st.SetPhase(conversation.PhaseRolePlay)

	case phase == conversation.PhaseGuardian:
		return s.direct(ctx, st, TaskAfterGuardian, conversation.PhaseRolePlay)

	case phase == conversation.PhaseRolePlay && st.HasUserInput():
		st.ClearEvaluation()
		st.SetInstruction(EvaluationInstruction)
		return st.SetPhase(conversation.PhaseEvaluate)

	case phase == conversation.PhaseEvaluate && st.HasUserInput() && st.Evaluation() == nil:
		st.SetInstruction(EvaluationInstruction)
		return nil

	case phase == conversation.PhaseEvaluate:
		return s.direct(ctx, st, TaskContinueRolePlay, conversation.PhaseRolePlay)
	}
	return nil
}

// direct writes the directive for task and moves to next.
func (s *Supervisor) direct(ctx context.Context, st *conversation.State, task Task, next conversation.Phase) error {
	instruction, err := s.instruction(ctx, st, task)
	if err != nil {
		return err
	}
	st.SetInstruction(instruction)
	return st.SetPhase(next)
}

func (s *Supervisor) instruction(ctx context.Context, st *conversation.State, task Task) (string, error) {
	if s.completer != nil {
		prompt := renderMasterPrompt(
			st.Phase().String(),
			st.Topic(),
			strconv.Itoa(st.TurnCount()),
			s.memory.Context(st.Messages(), st.Summary()),
			describe(task, st.Topic()),
		)
		text, err := completion.Text(ctx, s.completer, "", prompt)
		if err == nil && text != "" {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Warn("supervisor directive unavailable, using fallback", "task", task, "error", err)
	}

	if task == TaskTopicSelection {
		return topic.DefaultQuestion, nil
	}
	return FallbackInstruction(task), nil
}

// parseTopic extracts the scenario topic from the trainee's answer.
func (s *Supervisor) parseTopic(ctx context.Context, input string) (string, error) {
	if s.completer == nil {
		return s.fallbackTopic, nil
	}
	text, err := completion.Text(ctx, s.completer, "", renderTopicParsePrompt(input))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Warn("topic parse failed, using fallback topic", "error", err)
		return s.fallbackTopic, nil
	}
	text = strings.Trim(text, "\"'`“”‘’ \t\n")
	if text == "" {
		return s.fallbackTopic, nil
	}
	return text, nil
}
