package config

import (
	"fmt"
	"time"
)

type Config struct {
	LLM       LLMConfig                `yaml:"llm"`
	Personas  map[string]PersonaConfig `yaml:"personas"`
	Memory    MemoryConfig             `yaml:"memory"`
	Workflow  WorkflowConfig           `yaml:"workflow"`
	Retrieval RetrievalConfig          `yaml:"retrieval"`
	Session   SessionConfig            `yaml:"session"`
	Log       LogConfig                `yaml:"log"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	// Model empty selects the provider's default model.
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	BaseURL    string        `yaml:"base_url"`
}

// PersonaConfig overrides the model parameters of one agent. Unset
// fields inherit from the llm section and the built-in persona defaults.
type PersonaConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type MemoryConfig struct {
	ShortTermMaxTurns int `yaml:"short_term_max_turns"`
	SummaryInterval   int `yaml:"summary_interval"`
}

type WorkflowConfig struct {
	MaxTurns      int    `yaml:"max_turns"`
	MaxToolRounds int    `yaml:"max_tool_rounds"`
	MaxSteps      int    `yaml:"max_steps"`
	FallbackTopic string `yaml:"fallback_topic"`
}

type RetrievalConfig struct {
	Backend   string `yaml:"backend"`
	CorpusDir string `yaml:"corpus_dir"`
	Pattern   string `yaml:"pattern"`
	TopK      int    `yaml:"top_k"`
	CacheSize int    `yaml:"cache_size"`
	Watch     bool   `yaml:"watch"`
}

type SessionConfig struct {
	DBPath       string `yaml:"db_path"`
	CacheMaxCost int64  `yaml:"cache_max_cost"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	RetrievalBackendStub  = "stub"
	RetrievalBackendBleve = "bleve"
)

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "anthropic",
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
		},
		Personas: map[string]PersonaConfig{},
		Memory: MemoryConfig{
			ShortTermMaxTurns: 10,
			SummaryInterval:   5,
		},
		Workflow: WorkflowConfig{
			MaxTurns:      20,
			MaxToolRounds: 5,
			MaxSteps:      8,
			FallbackTopic: "일반 보이스피싱",
		},
		Retrieval: RetrievalConfig{
			Backend:   RetrievalBackendStub,
			Pattern:   "**/*.{yaml,yml}",
			TopK:      3,
			CacheSize: 256,
		},
		Session: SessionConfig{
			CacheMaxCost: 64,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Validate rejects configurations the session cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "google":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative")
	}
	for name, p := range c.Personas {
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			return fmt.Errorf("personas.%s.temperature must be between 0 and 2", name)
		}
		if p.MaxTokens < 0 {
			return fmt.Errorf("personas.%s.max_tokens must not be negative", name)
		}
	}
	if c.Memory.ShortTermMaxTurns <= 0 {
		return fmt.Errorf("memory.short_term_max_turns must be positive")
	}
	if c.Memory.SummaryInterval <= 0 {
		return fmt.Errorf("memory.summary_interval must be positive")
	}
	if c.Workflow.MaxTurns <= 0 {
		return fmt.Errorf("workflow.max_turns must be positive")
	}
	if c.Workflow.MaxToolRounds <= 0 {
		return fmt.Errorf("workflow.max_tool_rounds must be positive")
	}
	if c.Workflow.MaxSteps <= 0 {
		return fmt.Errorf("workflow.max_steps must be positive")
	}
	switch c.Retrieval.Backend {
	case RetrievalBackendStub:
	case RetrievalBackendBleve:
		if c.Retrieval.CorpusDir == "" {
			return fmt.Errorf("retrieval.corpus_dir is required for the bleve backend")
		}
	default:
		return fmt.Errorf("retrieval.backend: unknown backend %q", c.Retrieval.Backend)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}
