package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// GeminiChatSession implements the ChatSession interface
type GeminiChatSession struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	maxOutputTokens int
	systemPrompt    string
	tools           []*genai.Tool
	history         []*genai.Content
	// syntheticIDs are call IDs made up locally because the engine sent none.
	syntheticIDs map[string]bool
}

// NewGeminiChatSession creates a new chat session for one request
func NewGeminiChatSession(client *genai.Client, logger *zap.Logger, model string, maxOutputTokens int, systemPrompt string, tools []entities.ToolSpec) *GeminiChatSession {
	return &GeminiChatSession{
		client:          client,
		logger:          logger,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		systemPrompt:    systemPrompt,
		tools:           toGeminiTools(tools),
		syntheticIDs:    map[string]bool{},
	}
}

// SendMessage sends the user text with the function declarations attached
func (s *GeminiChatSession) SendMessage(ctx context.Context, text string) (repositories.ChatReply, error) {
	s.history = append(s.history, genai.NewContentFromText(text, genai.RoleUser))
	return s.generate(ctx, s.config(true))
}

// SubmitToolResults answers every function call of the previous turn
func (s *GeminiChatSession) SubmitToolResults(ctx context.Context, results []repositories.ToolResult) (repositories.ChatReply, error) {
	parts := make([]*genai.Part, 0, len(results))
	for _, r := range results {
		id := r.CallID
		if s.syntheticIDs[id] {
			id = ""
		}
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       id,
				Name:     r.Name,
				Response: map[string]any{"output": r.Content},
			},
		})
	}
	s.history = append(s.history, &genai.Content{Role: string(genai.RoleUser), Parts: parts})
	return s.generate(ctx, s.config(false))
}

func (s *GeminiChatSession) config(withTools bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(s.systemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(s.maxOutputTokens),
	}
	if withTools {
		config.Tools = s.tools
	}
	return config
}

func (s *GeminiChatSession) generate(ctx context.Context, config *genai.GenerateContentConfig) (repositories.ChatReply, error) {
	start := time.Now()
	response, err := s.client.Models.GenerateContent(ctx, s.model, s.history, config)
	if err != nil {
		s.logger.Error("Failed to generate content", zap.String("model", s.model), zap.Error(err))
		return repositories.ChatReply{}, &EngineError{Engine: "gemini", Category: "GenerateContent", Message: err.Error(), Err: err}
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return repositories.ChatReply{}, &EngineError{
			Engine:   "gemini",
			Category: "EmptyResponse",
			Message:  ErrNoCandidates.Error(),
			Err:      ErrNoCandidates,
		}
	}

	content := response.Candidates[0].Content
	s.history = append(s.history, content)

	var text strings.Builder
	reply := repositories.ChatReply{}
	for i, part := range content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
				s.syntheticIDs[id] = true
			}
			args := fc.Args
			if args == nil {
				args = map[string]any{}
			}
			reply.ToolCalls = append(reply.ToolCalls, entities.ToolCall{ID: id, Name: fc.Name, Arguments: args})
		}
	}
	reply.Content = text.String()

	s.logger.Info("Chat session message processed",
		zap.String("model", s.model),
		zap.Int("tool_calls", len(reply.ToolCalls)),
		zap.Int("history_length", len(s.history)),
		zap.Duration("duration", time.Since(start)))

	return reply, nil
}
