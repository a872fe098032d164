// Package evaluator judges whether a trainee reply exposed sensitive
// information.
//
// Evaluation runs in two passes. The pattern pass finds identifiers such
// as resident registration, card and account numbers. When it finds
// nothing, the contextual pass asks the evaluator persona about softer
// signs like implied consent or disclosed personal circumstances.
package evaluator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/adalundhe/voiceguard/agents/supervisor"
	"github.com/adalundhe/voiceguard/core/conversation"
)

// NoReplyReason is recorded when there is nothing to evaluate.
const NoReplyReason = "평가할 사용자 응답이 없습니다."

// RiskEvaluator produces a verdict for one reply. Implementations degrade
// to a safe verdict on their own failures; the error is reserved for a
// cancelled or expired context.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, reply string, history []conversation.Turn) (conversation.EvaluationResult, error)
}

// TwoPass runs Pattern first and consults Context only when no pattern
// matched.
type TwoPass struct {
	Pattern RiskEvaluator
	Context RiskEvaluator
}

func (t TwoPass) Evaluate(ctx context.Context, reply string, history []conversation.Turn) (conversation.EvaluationResult, error) {
	pattern := t.Pattern
	if pattern == nil {
		pattern = PatternEvaluator{}
	}
	result, err := pattern.Evaluate(ctx, reply, history)
	if err != nil || result.IsDanger || t.Context == nil {
		return result.Normalize(), err
	}
	return t.Context.Evaluate(ctx, reply, history)
}

type NodeConfig struct {
	Evaluator RiskEvaluator
	Logger    *slog.Logger
}

// Node is the evaluation step of a turn.
type Node struct {
	evaluator RiskEvaluator
	logger    *slog.Logger
}

func NewNode(cfg NodeConfig) *Node {
	if cfg.Evaluator == nil {
		cfg.Evaluator = PatternEvaluator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Node{
		evaluator: cfg.Evaluator,
		logger:    cfg.Logger.With("component", "evaluator"),
	}
}

// Run evaluates the pending reply, or the latest trainee turn when no
// reply is pending, and stores the verdict. Nothing else in st changes.
func (n *Node) Run(ctx context.Context, st *conversation.State) error {
	reply := st.UserInput()
	if reply == "" {
		last, ok := st.LastUserMessage()
		if !ok || strings.TrimSpace(last) == "" {
			st.SetEvaluation(conversation.EvaluationResult{Reason: NoReplyReason})
			return nil
		}
		reply = last
	}

	result, err := n.evaluator.Evaluate(ctx, reply, st.Messages())
	if err != nil {
		return err
	}
	st.SetEvaluation(result)

	n.logger.Info("reply evaluated",
		"turn", st.TurnCount(),
		"danger", result.IsDanger,
		"detected", len(result.DetectedInfo),
	)
	return nil
}

// RouteAfterEvaluation sends a dangerous reply to the guardian and
// everything else back to role-play.
func RouteAfterEvaluation(st *conversation.State) supervisor.Node {
	if e := st.Evaluation(); e != nil && e.IsDanger {
		return supervisor.NodeGuardian
	}
	return supervisor.NodeRolePlay
}
