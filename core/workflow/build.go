package workflow

import (
	"fmt"
	"log/slog"

	"github.com/adalundhe/voiceguard/agents/evaluator"
	"github.com/adalundhe/voiceguard/agents/guardian"
	"github.com/adalundhe/voiceguard/agents/roleplay"
	"github.com/adalundhe/voiceguard/agents/supervisor"
	"github.com/adalundhe/voiceguard/agents/topic"
	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/config"
	"github.com/adalundhe/voiceguard/core/memory"
	"github.com/adalundhe/voiceguard/core/retrieval"
)

// Build assembles a Runner from configuration and the persona clients.
// A nil searcher uses the placeholder retrieval backend.
func Build(cfg *config.Config, personas *completion.Personas, searcher retrieval.Searcher, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if personas == nil {
		return nil, fmt.Errorf("workflow: personas are required")
	}
	if searcher == nil {
		searcher = retrieval.Stub{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	mem := memory.NewManager(memory.Config{
		ShortTermMaxTurns: cfg.Memory.ShortTermMaxTurns,
		SummaryInterval:   cfg.Memory.SummaryInterval,
		Summarizer:        memory.NewLLMSummarizer(personas.Summary),
		Logger:            logger,
	})

	sup := supervisor.New(supervisor.Config{
		Completer:     personas.Supervisor,
		Memory:        mem,
		MaxTurns:      cfg.Workflow.MaxTurns,
		FallbackTopic: cfg.Workflow.FallbackTopic,
		Logger:        logger,
	})

	rp, err := roleplay.New(roleplay.Config{
		Completer:     personas.RolePlay,
		Memory:        mem,
		Searcher:      searcher,
		MaxToolRounds: cfg.Workflow.MaxToolRounds,
		TopK:          cfg.Retrieval.TopK,
		FallbackTopic: cfg.Workflow.FallbackTopic,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	contextual, err := evaluator.NewContextEvaluator(personas.Evaluator, logger)
	if err != nil {
		return nil, err
	}

	return NewRunner(Config{
		Supervisor: sup,
		Topic:      topic.New(),
		RolePlay:   rp,
		Evaluate: evaluator.NewNode(evaluator.NodeConfig{
			Evaluator: evaluator.TwoPass{Context: contextual},
			Logger:    logger,
		}),
		Guardian: guardian.NewNode(guardian.NodeConfig{
			Intervener: guardian.NewLLMIntervener(personas.Guardian, searcher, cfg.Retrieval.TopK, cfg.Workflow.FallbackTopic),
			Logger:     logger,
		}),
		MaxSteps: cfg.Workflow.MaxSteps,
		Logger:   logger,
	})
}
