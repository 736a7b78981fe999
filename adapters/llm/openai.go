package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// OpenAILLM implements the LargeLanguageModel interface for any
// OpenAI-compatible chat completions API. Groq is the default endpoint.
type OpenAILLM struct {
	client    openai.Client
	logger    *zap.Logger
	model     string
	maxTokens int64
}

var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// NewOpenAILLM creates a new OpenAI-compatible LLM instance. A missing API key
// is tolerated; requests then fail with an authentication error.
func NewOpenAILLM(config Config, logger *zap.Logger) (*OpenAILLM, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultOpenAIModel
		logger.Info("Using default model", zap.String("model", model))
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	if config.APIKey == "" {
		logger.Warn("Reasoning engine API key is not set", zap.String("base_url", baseURL))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	}

	return &OpenAILLM{
		client:    openai.NewClient(opts...),
		logger:    logger,
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

// GenerateChat creates a chat session seeded with the system instruction
func (o *OpenAILLM) GenerateChat(ctx context.Context, systemInstruction string, tools []entities.ToolSpec) (repositories.ChatSession, error) {
	return &openAIChatSession{
		client:    o.client,
		logger:    o.logger,
		model:     o.model,
		maxTokens: o.maxTokens,
		tools:     toOpenAITools(tools),
		messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
		},
	}, nil
}

func toOpenAITools(specs []entities.ToolSpec) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  openai.FunctionParameters(spec.Parameters.JSONSchema()),
		}))
	}
	return tools
}

// openAIChatSession keeps the message list of one exchange
type openAIChatSession struct {
	client    openai.Client
	logger    *zap.Logger
	model     string
	maxTokens int64
	tools     []openai.ChatCompletionToolUnionParam
	messages  []openai.ChatCompletionMessageParamUnion
}

// SendMessage sends the user text with the tool catalog attached
func (s *openAIChatSession) SendMessage(ctx context.Context, text string) (repositories.ChatReply, error) {
	s.messages = append(s.messages, openai.UserMessage(text))

	return s.complete(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(s.model),
		Messages:            s.messages,
		Tools:               s.tools,
		MaxCompletionTokens: openai.Int(s.maxTokens),
	})
}

// SubmitToolResults appends one tool message per call and asks for the final reply
func (s *openAIChatSession) SubmitToolResults(ctx context.Context, results []repositories.ToolResult) (repositories.ChatReply, error) {
	for _, r := range results {
		s.messages = append(s.messages, openai.ToolMessage(r.Content, r.CallID))
	}

	return s.complete(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(s.model),
		Messages:            s.messages,
		MaxCompletionTokens: openai.Int(s.maxTokens),
	})
}

func (s *openAIChatSession) complete(ctx context.Context, params openai.ChatCompletionNewParams) (repositories.ChatReply, error) {
	start := time.Now()
	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		s.logger.Error("Chat completion failed", zap.String("model", s.model), zap.Error(err))
		return repositories.ChatReply{}, newOpenAIError(err)
	}
	if len(completion.Choices) == 0 {
		return repositories.ChatReply{}, &EngineError{
			Engine:   "openai",
			Category: "EmptyResponse",
			Message:  ErrNoCandidates.Error(),
			Err:      ErrNoCandidates,
		}
	}

	msg := completion.Choices[0].Message
	s.messages = append(s.messages, msg.ToParam())

	reply := repositories.ChatReply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		call := entities.ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if raw := tc.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &call.Arguments); err != nil || call.Arguments == nil {
				s.logger.Warn("Tool call arguments are not a JSON object",
					zap.String("tool", call.Name),
					zap.String("arguments", raw))
				call.Arguments = nil
				call.RawArguments = raw
			}
		} else {
			call.Arguments = map[string]any{}
		}
		reply.ToolCalls = append(reply.ToolCalls, call)
	}

	s.logger.Info("Chat completion received",
		zap.String("model", s.model),
		zap.Int("tool_calls", len(reply.ToolCalls)),
		zap.String("finish_reason", string(completion.Choices[0].FinishReason)),
		zap.Duration("duration", time.Since(start)))

	return reply, nil
}

func newOpenAIError(err error) *EngineError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &EngineError{Engine: "openai", Category: "DeadlineExceeded", Message: err.Error(), Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &EngineError{Engine: "openai", Category: "Canceled", Message: err.Error(), Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = err.Error()
		}
		return &EngineError{Engine: "openai", Category: http.StatusText(apiErr.StatusCode), Message: message, Err: err}
	}
	return &EngineError{Engine: "openai", Category: "Unknown", Message: err.Error(), Err: err}
}
