package completion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adalundhe/voiceguard/core/config"
	coreerrors "github.com/adalundhe/voiceguard/core/errors"
	"github.com/adalundhe/voiceguard/core/providers"
)

// Personas is the set of completers injected into the agents.
type Personas struct {
	Supervisor Completer
	RolePlay   Completer
	Evaluator  Completer
	Guardian   Completer
	Summary    Completer
}

// SinglePersonas routes every persona to c.
func SinglePersonas(c Completer) *Personas {
	return &Personas{Supervisor: c, RolePlay: c, Evaluator: c, Guardian: c, Summary: c}
}

// KeyResolver returns the API key for a provider name.
type KeyResolver func(provider string) (string, error)

// BuildRegistry creates one provider client for every provider the
// configured personas use.
func BuildRegistry(ctx context.Context, cfg *config.Config, resolveKey KeyResolver) (*providers.Registry, error) {
	personas, err := resolveAll(cfg)
	if err != nil {
		return nil, err
	}

	reg := providers.NewRegistry()
	for _, pt := range ProvidersIn(personas) {
		key, err := resolveKey(string(pt))
		if err != nil {
			reg.Close()
			return nil, err
		}

		baseURL := ""
		if string(pt) == cfg.LLM.Provider {
			baseURL = cfg.LLM.BaseURL
		}
		base := providers.BaseConfig{APIKey: key, Timeout: cfg.LLM.Timeout}
		if err := reg.Connect(ctx, pt, base, baseURL); err != nil {
			reg.Close()
			return nil, err
		}
	}
	return reg, nil
}

// NewPersonas builds a Service per persona on top of the registry. All
// services share one retry executor.
func NewPersonas(cfg *config.Config, reg *providers.Registry, logger *slog.Logger) (*Personas, error) {
	if logger == nil {
		logger = slog.Default()
	}

	retry := coreerrors.NewRetryExecutor(coreerrors.DefaultRetryPolicies(cfg.LLM.MaxRetries), nil)
	retry.OnRetry = func(attempt int, tier coreerrors.ErrorTier, delay time.Duration, err error) {
		logger.Info("retrying completion", "attempt", attempt, "tier", tier, "delay", delay, "error", err)
	}

	services := make(map[string]*Service, len(personaDefaults))
	for _, name := range PersonaNames() {
		persona, err := ResolvePersona(name, cfg)
		if err != nil {
			return nil, err
		}
		provider, err := reg.Get(persona.Provider)
		if err != nil {
			return nil, fmt.Errorf("persona %s: %w", name, err)
		}
		svc, err := NewService(ServiceConfig{
			Persona:  persona,
			Provider: provider,
			Timeout:  cfg.LLM.Timeout,
			Retry:    retry,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		services[name] = svc
	}

	return &Personas{
		Supervisor: services[PersonaSupervisor],
		RolePlay:   services[PersonaRolePlay],
		Evaluator:  services[PersonaEvaluator],
		Guardian:   services[PersonaGuardian],
		Summary:    services[PersonaSummary],
	}, nil
}

func resolveAll(cfg *config.Config) ([]Persona, error) {
	out := make([]Persona, 0, len(personaDefaults))
	for _, name := range PersonaNames() {
		p, err := ResolvePersona(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
