package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/voiceguard/core/config"
	coreerrors "github.com/adalundhe/voiceguard/core/errors"
	"github.com/adalundhe/voiceguard/core/providers"
)

func fastRetry(attempts int) *coreerrors.RetryExecutor {
	policy := &coreerrors.RetryPolicy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
	return coreerrors.NewRetryExecutor(map[coreerrors.ErrorTier]*coreerrors.RetryPolicy{
		coreerrors.TierTransient: policy,
	}, nil)
}

func TestResolvePersonaDefaults(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name        string
		temperature float64
		maxTokens   int
	}{
		{PersonaSupervisor, 0.3, 512},
		{PersonaRolePlay, 0.8, 512},
		{PersonaEvaluator, 0.0, 512},
		{PersonaGuardian, 0.5, 1024},
		{PersonaSummary, 0.0, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolvePersona(tt.name, cfg)
			require.NoError(t, err)
			assert.Equal(t, providers.ProviderTypeAnthropic, p.Provider)
			assert.Equal(t, providers.DefaultAnthropicModel, p.Model)
			assert.Equal(t, tt.temperature, p.Temperature)
			assert.Equal(t, tt.maxTokens, p.MaxTokens)
		})
	}
}

func TestResolvePersonaOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Model = "claude-haiku-4-5-20251001"
	temp := 1.1
	cfg.Personas = map[string]config.PersonaConfig{
		PersonaRolePlay: {Temperature: &temp},
		PersonaGuardian: {Provider: "openai", MaxTokens: 2048},
	}

	rp, err := ResolvePersona(PersonaRolePlay, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.1, rp.Temperature)
	assert.Equal(t, "claude-haiku-4-5-20251001", rp.Model)

	g, err := ResolvePersona(PersonaGuardian, cfg)
	require.NoError(t, err)
	assert.Equal(t, providers.ProviderTypeOpenAI, g.Provider)
	assert.Equal(t, providers.DefaultOpenAIModel, g.Model, "switching provider drops the llm model")
	assert.Equal(t, 2048, g.MaxTokens)
	assert.Equal(t, 0.5, g.Temperature)

	_, err = ResolvePersona("narrator", cfg)
	assert.Error(t, err)
}

func TestServiceCompleteSendsPersonaParameters(t *testing.T) {
	mock := providers.NewMockProvider().QueueText("  안녕하세요  ")
	svc, err := NewService(ServiceConfig{
		Persona:  Persona{Name: PersonaRolePlay, Model: "m", Temperature: 0.8, MaxTokens: 512},
		Provider: mock,
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	tools := []providers.Tool{{Name: "search"}}
	resp, err := svc.Complete(context.Background(), Request{
		System: "sys",
		Turns:  []providers.Message{providers.UserMessage("hi")},
		Tools:  tools,
	})
	require.NoError(t, err)
	assert.Equal(t, "  안녕하세요  ", resp.Content)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "sys", reqs[0].SystemPrompt)
	assert.Equal(t, "m", reqs[0].Model)
	assert.Equal(t, 512, reqs[0].MaxTokens)
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.8, *reqs[0].Temperature)
	assert.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, PersonaRolePlay, reqs[0].Metadata["persona"])
}

func TestServiceRetriesTransientFailures(t *testing.T) {
	mock := providers.NewMockProvider().
		QueueError(errors.New("connection reset by peer")).
		QueueText("ok")
	svc, err := NewService(ServiceConfig{
		Persona:  Persona{Name: PersonaSupervisor},
		Provider: mock,
		Retry:    fastRetry(2),
	})
	require.NoError(t, err)

	out, err := Text(context.Background(), svc, "", "go")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, mock.CallCount())
}

func TestServiceWrapsFinalError(t *testing.T) {
	mock := providers.NewMockProvider().QueueError(errors.New("invalid request body"))
	svc, err := NewService(ServiceConfig{
		Persona:  Persona{Name: PersonaEvaluator},
		Provider: mock,
		Retry:    fastRetry(2),
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, coreerrors.TierPermanent, coreerrors.GetTier(err))
	assert.Contains(t, err.Error(), "evaluator completion")
	assert.Equal(t, 1, mock.CallCount(), "permanent errors are not retried")
}

func TestServiceAppliesPerCallTimeout(t *testing.T) {
	var sawDeadline bool
	blocking := &deadlineProvider{MockProvider: providers.NewMockProvider(), saw: &sawDeadline}

	svc, err := NewService(ServiceConfig{
		Persona:  Persona{Name: PersonaGuardian},
		Provider: blocking,
		Timeout:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, sawDeadline)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type deadlineProvider struct {
	*providers.MockProvider
	saw *bool
}

func (d *deadlineProvider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	_, *d.saw = ctx.Deadline()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNewServiceRequiresProvider(t *testing.T) {
	_, err := NewService(ServiceConfig{Persona: Persona{Name: "x"}})
	assert.Error(t, err)
}

func TestNewPersonasUsesRegistry(t *testing.T) {
	cfg := config.DefaultConfig()
	mock := providers.NewMockProvider().QueueText("a")

	reg := providers.NewRegistry()
	require.NoError(t, reg.Register(providers.ProviderTypeAnthropic, mock))

	personas, err := NewPersonas(cfg, reg, nil)
	require.NoError(t, err)

	for _, c := range []Completer{personas.Supervisor, personas.RolePlay, personas.Evaluator, personas.Guardian, personas.Summary} {
		require.NotNil(t, c)
	}

	out, err := Text(context.Background(), personas.Guardian, "", "x")
	require.NoError(t, err)
	assert.Equal(t, "a", out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 1024, reqs[0].MaxTokens)
}

func TestNewPersonasMissingProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Personas = map[string]config.PersonaConfig{PersonaSummary: {Provider: "google"}}

	reg := providers.NewRegistry()
	require.NoError(t, reg.Register(providers.ProviderTypeAnthropic, providers.NewMockProvider()))

	_, err := NewPersonas(cfg, reg, nil)
	assert.Error(t, err)
}

func TestBuildRegistryPropagatesMissingKey(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := BuildRegistry(context.Background(), cfg, func(string) (string, error) {
		return "", coreerrors.ErrMissingAPIKey
	})
	assert.ErrorIs(t, err, coreerrors.ErrMissingAPIKey)
}

func TestBuildRegistryRegistersConfiguredProviders(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Personas = map[string]config.PersonaConfig{PersonaGuardian: {Provider: "openai"}}

	var asked []string
	reg, err := BuildRegistry(context.Background(), cfg, func(p string) (string, error) {
		asked = append(asked, p)
		return "test-key", nil
	})
	require.NoError(t, err)
	defer reg.Close()

	assert.ElementsMatch(t, []string{"anthropic", "openai"}, asked)
	assert.True(t, reg.Has(providers.ProviderTypeAnthropic))
	assert.True(t, reg.Has(providers.ProviderTypeOpenAI))
	assert.False(t, reg.Has(providers.ProviderTypeGoogle))
}

func TestSinglePersonas(t *testing.T) {
	mock := providers.NewMockProvider()
	svc, err := NewService(ServiceConfig{Persona: Persona{Name: "all"}, Provider: mock})
	require.NoError(t, err)

	p := SinglePersonas(svc)
	assert.Same(t, svc, p.Supervisor.(*Service))
	assert.Same(t, svc, p.Summary.(*Service))
}
