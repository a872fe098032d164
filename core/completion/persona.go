// Package completion binds the agents to text-completion providers. Each
// agent talks to its own persona: a provider and model with fixed
// sampling parameters.
package completion

import (
	"fmt"

	"github.com/adalundhe/voiceguard/core/config"
	"github.com/adalundhe/voiceguard/core/providers"
)

const (
	PersonaSupervisor = "supervisor"
	PersonaRolePlay   = "roleplay"
	PersonaEvaluator  = "evaluator"
	PersonaGuardian   = "guardian"
	PersonaSummary    = "summary"
)

// Persona is the resolved model binding of one agent.
type Persona struct {
	Name        string
	Provider    providers.ProviderType
	Model       string
	Temperature float64
	MaxTokens   int
}

var personaDefaults = map[string]Persona{
	PersonaSupervisor: {Name: PersonaSupervisor, Temperature: 0.3, MaxTokens: 512},
	PersonaRolePlay:   {Name: PersonaRolePlay, Temperature: 0.8, MaxTokens: 512},
	PersonaEvaluator:  {Name: PersonaEvaluator, Temperature: 0.0, MaxTokens: 512},
	PersonaGuardian:   {Name: PersonaGuardian, Temperature: 0.5, MaxTokens: 1024},
	PersonaSummary:    {Name: PersonaSummary, Temperature: 0.0, MaxTokens: 512},
}

// PersonaNames lists the personas in the order they are built.
func PersonaNames() []string {
	return []string{PersonaSupervisor, PersonaRolePlay, PersonaEvaluator, PersonaGuardian, PersonaSummary}
}

// ResolvePersona layers the persona section of cfg over the built-in
// defaults and the llm section.
func ResolvePersona(name string, cfg *config.Config) (Persona, error) {
	p, ok := personaDefaults[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q", name)
	}

	provider, err := providers.ParseProviderType(cfg.LLM.Provider)
	if err != nil {
		return Persona{}, err
	}
	p.Provider = provider
	p.Model = cfg.LLM.Model

	override := cfg.Personas[name]
	if override.Provider != "" {
		pt, err := providers.ParseProviderType(override.Provider)
		if err != nil {
			return Persona{}, fmt.Errorf("persona %s: %w", name, err)
		}
		if pt != p.Provider {
			p.Model = ""
		}
		p.Provider = pt
	}
	if override.Model != "" {
		p.Model = override.Model
	}
	if override.Temperature != nil {
		p.Temperature = *override.Temperature
	}
	if override.MaxTokens > 0 {
		p.MaxTokens = override.MaxTokens
	}
	if p.Model == "" {
		p.Model = providers.DefaultModelFor(p.Provider)
	}
	return p, nil
}

// ProvidersIn returns the distinct providers the personas need.
func ProvidersIn(personas []Persona) []providers.ProviderType {
	seen := make(map[providers.ProviderType]bool)
	var out []providers.ProviderType
	for _, p := range personas {
		if !seen[p.Provider] {
			seen[p.Provider] = true
			out = append(out, p.Provider)
		}
	}
	return out
}
