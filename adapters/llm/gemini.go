package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client    *genai.Client
	logger    *zap.Logger
	model     string
	maxTokens int
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config Config, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiLLM{
		client:    client,
		logger:    logger,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// GenerateChat creates a chat session with the system instruction and tools
func (g *GeminiLLM) GenerateChat(ctx context.Context, systemInstruction string, tools []entities.ToolSpec) (repositories.ChatSession, error) {
	return NewGeminiChatSession(g.client, g.logger, g.model, g.maxTokens, systemInstruction, tools), nil
}

// toGeminiTools declares every tool as a function of a single Tool.
func toGeminiTools(specs []entities.ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toGeminiSchema(spec.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGeminiSchema(params entities.ParameterSchema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(params.Properties))
	for name, p := range params.Properties {
		props[name] = &genai.Schema{
			Type:        geminiType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   params.Required,
	}
}

func geminiType(t entities.PropertyType) genai.Type {
	switch t {
	case entities.PropertyInteger:
		return genai.TypeInteger
	case entities.PropertyNumber:
		return genai.TypeNumber
	case entities.PropertyBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
