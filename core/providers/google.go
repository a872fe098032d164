package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GenaiModelsClient is the slice of the genai SDK the provider uses.
type GenaiModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GoogleProvider implements Provider for Gemini models
type GoogleProvider struct {
	models GenaiModelsClient
	config GoogleConfig
}

const DefaultGoogleModel = "gemini-2.5-flash"

var googleModels = map[string]bool{
	"gemini-2.5-flash": true,
	"gemini-2.5-pro":   true,
	"gemini-2.0-flash": true,
}

// NewGoogleProvider creates a provider backed by the Gemini API or,
// when configured, Vertex AI.
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.UseVertexAI {
		cc = &genai.ClientConfig{
			Project:  config.ProjectID,
			Location: config.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}

	return &GoogleProvider{models: client.Models, config: config}, nil
}

// NewGoogleProviderWithClient wires a provider to an existing models client.
func NewGoogleProviderWithClient(models GenaiModelsClient, config GoogleConfig) *GoogleProvider {
	return &GoogleProvider{models: models, config: config.withDefaults()}
}

func (p *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

func (p *GoogleProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	resp, err := p.models.GenerateContent(ctx, model, convertGenaiContents(req.Messages), p.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("google generate: %w", err)
	}
	return convertGenaiResponse(model, resp), nil
}

func (p *GoogleProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *GoogleProvider) SupportsModel(model string) bool {
	return googleModels[model]
}

func (p *GoogleProvider) DefaultModel() string {
	return p.config.Model
}

func (p *GoogleProvider) Close() error {
	return nil
}

func (p *GoogleProvider) buildConfig(req *Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		StopSequences:   req.StopSequences,
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	} else if p.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.config.Temperature))
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 tool.Name,
				Description:          tool.Description,
				ParametersJsonSchema: ensureObjectType(tool.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

func convertGenaiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	callNames := make(map[string]string)

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser, RoleSystem:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, decodeArgs(tc.Arguments)))
			}
			if len(parts) == 0 {
				parts = append(parts, genai.NewPartFromText(""))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(callNames[msg.ToolCallID], map[string]any{"output": msg.Content})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return contents
}

func decodeArgs(arguments string) map[string]any {
	args := map[string]any{}
	if arguments == "" {
		return args
	}
	_ = json.Unmarshal([]byte(arguments), &args)
	return args
}

func convertGenaiResponse(model string, resp *genai.GenerateContentResponse) *Response {
	out := &Response{
		Model:      model,
		StopReason: StopReasonEndTurn,
	}
	if resp == nil {
		out.StopReason = StopReasonError
		return out
	}

	out.Content = resp.Text()
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		out.StopReason = StopReasonMaxTokens
	}

	for _, call := range resp.FunctionCalls() {
		args, _ := json.Marshal(call.Args)
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        id,
			Name:      call.Name,
			Arguments: string(args),
		})
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = StopReasonToolUse
	}
	return out
}
