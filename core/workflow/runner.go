// Package workflow drives one conversation turn through the agents.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adalundhe/voiceguard/agents/evaluator"
	"github.com/adalundhe/voiceguard/agents/supervisor"
	"github.com/adalundhe/voiceguard/core/conversation"
)

const DefaultMaxSteps = 8

// nodeSupervisor is the entry node of every turn.
const nodeSupervisor supervisor.Node = "supervisor"

var ErrStepLimit = errors.New("turn exceeded the step limit")

// =============================================================================
// Steps
// =============================================================================

// Step is one agent invocation over the shared state.
type Step interface {
	Run(ctx context.Context, st *conversation.State) error
}

// Config wires the agents into a runner. Every field except Logger and
// MaxSteps is required.
type Config struct {
	Supervisor *supervisor.Supervisor
	Topic      Step
	RolePlay   Step
	Evaluate   Step
	Guardian   Step

	// MaxSteps bounds node executions per turn.
	MaxSteps int
	Logger   *slog.Logger
}

// =============================================================================
// Runner
// =============================================================================

// Runner executes turns. It holds no per-session data, so one Runner can
// serve many sessions as long as each session is driven by one goroutine.
type Runner struct {
	supervisor *supervisor.Supervisor
	steps      map[supervisor.Node]Step
	maxSteps   int
	logger     *slog.Logger
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Supervisor == nil {
		return nil, fmt.Errorf("workflow: supervisor is required")
	}
	steps := map[supervisor.Node]Step{
		supervisor.NodeTopicSelection: cfg.Topic,
		supervisor.NodeRolePlay:       cfg.RolePlay,
		supervisor.NodeEvaluate:       cfg.Evaluate,
		supervisor.NodeGuardian:       cfg.Guardian,
	}
	for node, step := range steps {
		if step == nil {
			return nil, fmt.Errorf("workflow: %s step is required", node)
		}
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		supervisor: cfg.Supervisor,
		steps:      steps,
		maxSteps:   cfg.MaxSteps,
		logger:     cfg.Logger.With("component", "workflow"),
	}, nil
}

// InitialState returns the state a new session starts from. An empty
// topic makes the first turn ask the trainee for one.
func InitialState(topic, userInput string) *conversation.State {
	return conversation.New(topic, userInput)
}

// RunTurn runs the graph from the supervisor until a node pauses for the
// trainee or the session ends. The caller's state is never modified: on
// error it is returned as is, so the turn can be retried.
func (r *Runner) RunTurn(ctx context.Context, st *conversation.State, userInput string) (*conversation.State, error) {
	work := st.Clone()
	if userInput != "" {
		work.SetUserInput(userInput)
	}

	if err := r.drive(ctx, work); err != nil {
		r.logger.Warn("turn failed", "phase", st.Phase(), "turn", st.TurnCount(), "error", err)
		return st, err
	}
	work.ClearUserInput()

	r.logger.Debug("turn done", "phase", work.Phase(), "turn", work.TurnCount(), "messages", work.Len())
	return work, nil
}

func (r *Runner) drive(ctx context.Context, st *conversation.State) error {
	node := nodeSupervisor
	for executed := 0; ; executed++ {
		if executed >= r.maxSteps {
			return fmt.Errorf("%w (%d) at node %s", ErrStepLimit, r.maxSteps, node)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Debug("node", "node", node, "phase", st.Phase())

		switch node {
		case nodeSupervisor:
			if err := r.supervisor.Advance(ctx, st); err != nil {
				return fmt.Errorf("supervisor: %w", err)
			}
			node = r.supervisor.Route(st)

		case supervisor.NodeEvaluate:
			if err := r.steps[node].Run(ctx, st); err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			if evaluator.RouteAfterEvaluation(st) == supervisor.NodeGuardian {
				node = supervisor.NodeGuardian
			} else {
				node = nodeSupervisor
			}

		case supervisor.NodeTopicSelection, supervisor.NodeRolePlay, supervisor.NodeGuardian:
			if err := r.steps[node].Run(ctx, st); err != nil {
				return fmt.Errorf("%s: %w", node, err)
			}
			return nil

		case supervisor.NodeEnd:
			return st.SetPhase(conversation.PhaseEnd)

		default:
			return fmt.Errorf("unknown node %q", node)
		}
	}
}

// Done reports whether st has reached the end of the session.
func (r *Runner) Done(st *conversation.State) bool {
	return st.Phase() == conversation.PhaseEnd || r.supervisor.CeilingReached(st)
}

func (r *Runner) MaxTurns() int {
	return r.supervisor.MaxTurns()
}
