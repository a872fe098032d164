package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreerrors "github.com/adalundhe/voiceguard/core/errors"
	"github.com/adalundhe/voiceguard/core/providers"
)

// Request is one completion call: a system prompt, the dialogue so far
// and the tools the model may call.
type Request struct {
	System string
	Turns  []providers.Message
	Tools  []providers.Tool
}

// Completer produces the next assistant message for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (*providers.Response, error)
}

// Text sends a single user prompt and returns the trimmed reply.
func Text(ctx context.Context, c Completer, system, prompt string) (string, error) {
	resp, err := c.Complete(ctx, Request{
		System: system,
		Turns:  []providers.Message{providers.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

type ServiceConfig struct {
	Persona  Persona
	Provider providers.Provider

	// Timeout bounds each attempt. Zero disables the per-call deadline.
	Timeout time.Duration

	// Retry runs attempts; nil means a single attempt.
	Retry *coreerrors.RetryExecutor

	Logger *slog.Logger
}

// Service is the Completer of one persona.
type Service struct {
	persona  Persona
	provider providers.Provider
	timeout  time.Duration
	retry    *coreerrors.RetryExecutor
	logger   *slog.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("persona %s: provider is required", cfg.Persona.Name)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		persona:  cfg.Persona,
		provider: cfg.Provider,
		timeout:  cfg.Timeout,
		retry:    cfg.Retry,
		logger:   logger.With("persona", cfg.Persona.Name),
	}, nil
}

func (s *Service) Persona() Persona {
	return s.persona
}

func (s *Service) Complete(ctx context.Context, req Request) (*providers.Response, error) {
	temperature := s.persona.Temperature
	preq := &providers.Request{
		Messages:     req.Turns,
		Model:        s.persona.Model,
		MaxTokens:    s.persona.MaxTokens,
		Temperature:  &temperature,
		SystemPrompt: req.System,
		Tools:        req.Tools,
		Metadata:     map[string]any{"persona": s.persona.Name},
	}

	var resp *providers.Response
	attempt := func(ctx context.Context) error {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()

		r, err := s.provider.Generate(callCtx, preq)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	start := time.Now()
	var err error
	if s.retry != nil {
		err = s.retry.Do(ctx, attempt)
	} else {
		err = attempt(ctx)
	}
	if err != nil {
		s.logger.Warn("completion failed", "provider", s.provider.Name(), "error", err)
		return nil, coreerrors.WrapWithTier(coreerrors.TierExternalDegrading,
			fmt.Sprintf("%s completion", s.persona.Name), err)
	}
	if resp == nil {
		resp = &providers.Response{}
	}

	s.logger.Debug("completion done",
		"model", resp.Model,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"tool_calls", len(resp.ToolCalls),
		"elapsed", time.Since(start),
	)
	return resp, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
