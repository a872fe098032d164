package providers

import (
	"fmt"
	"time"
)

// BaseConfig contains configuration common to all providers
type BaseConfig struct {
	// APIKey is the authentication key for the provider
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the default model to use
	Model string `json:"model" yaml:"model"`

	// MaxTokens is the default maximum tokens to generate
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the default sampling temperature
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout for API requests
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultBaseConfig returns sensible defaults
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		MaxTokens: 1024,
		Timeout:   2 * time.Minute,
	}
}

// Validate checks the base configuration
func (c *BaseConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

func (c BaseConfig) withDefaults(model string) BaseConfig {
	d := DefaultBaseConfig()
	if c.Model == "" {
		c.Model = model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// AnthropicConfig contains Anthropic-specific configuration
type AnthropicConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{BaseConfig: BaseConfig{}.withDefaults(DefaultAnthropicModel)}
}

func (c AnthropicConfig) withDefaults() AnthropicConfig {
	c.BaseConfig = c.BaseConfig.withDefaults(DefaultAnthropicModel)
	return c
}

func (c *AnthropicConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return fmt.Errorf("anthropic config: %w", err)
	}
	return nil
}

// OpenAIConfig contains OpenAI-specific configuration
type OpenAIConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// BaseURL overrides the default API endpoint (for Azure, proxies, etc.)
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	Project      string `json:"project,omitempty" yaml:"project,omitempty"`
}

func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{BaseConfig: BaseConfig{}.withDefaults(DefaultOpenAIModel)}
}

func (c OpenAIConfig) withDefaults() OpenAIConfig {
	c.BaseConfig = c.BaseConfig.withDefaults(DefaultOpenAIModel)
	return c
}

func (c *OpenAIConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return fmt.Errorf("openai config: %w", err)
	}
	return nil
}

// GoogleConfig contains Google/Gemini-specific configuration
type GoogleConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// ProjectID for Vertex AI (optional, uses Gemini API if not set)
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`

	// Location for Vertex AI (e.g., "us-central1")
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// UseVertexAI switches from Gemini API to Vertex AI
	UseVertexAI bool `json:"use_vertex_ai" yaml:"use_vertex_ai"`
}

func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		BaseConfig: BaseConfig{}.withDefaults(DefaultGoogleModel),
		Location:   "us-central1",
	}
}

func (c GoogleConfig) withDefaults() GoogleConfig {
	c.BaseConfig = c.BaseConfig.withDefaults(DefaultGoogleModel)
	if c.Location == "" {
		c.Location = "us-central1"
	}
	return c
}

func (c *GoogleConfig) Validate() error {
	if c.UseVertexAI {
		if c.ProjectID == "" {
			return fmt.Errorf("google config: project_id required for Vertex AI")
		}
		return nil
	}
	if err := c.BaseConfig.Validate(); err != nil {
		return fmt.Errorf("google config: %w", err)
	}
	return nil
}

// ProviderType identifies the provider
type ProviderType string

const (
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeGoogle    ProviderType = "google"
	ProviderTypeMock      ProviderType = "mock"
)

// ParseProviderType validates a configured provider name.
func ParseProviderType(name string) (ProviderType, error) {
	switch t := ProviderType(name); t {
	case ProviderTypeAnthropic, ProviderTypeOpenAI, ProviderTypeGoogle:
		return t, nil
	case "":
		return ProviderTypeAnthropic, nil
	default:
		return "", fmt.Errorf("unknown provider %q", name)
	}
}

// DefaultModelFor returns the built-in model for a provider.
func DefaultModelFor(t ProviderType) string {
	switch t {
	case ProviderTypeOpenAI:
		return DefaultOpenAIModel
	case ProviderTypeGoogle:
		return DefaultGoogleModel
	default:
		return DefaultAnthropicModel
	}
}
