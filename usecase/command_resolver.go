package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
	"github.com/revgen/voicecmd/internal/action"
)

// ErrUnknownTool marks a tool call naming a tool that was never advertised.
var ErrUnknownTool = errors.New("unknown tool")

// DefaultSystemPrompt frames the assistant for the households it serves.
const DefaultSystemPrompt = `You are a voice assistant running on a small device in someone's home.
You help elderly people use their electronic devices, mainly the TV and the internet modem.
Commands arrive already translated into English and may be short or loosely phrased.
When the request maps to one of the available tools, call it. Use calculate for any arithmetic.
When no tool fits, answer briefly and plainly in one or two sentences.
After tools have run, tell the person in simple words what happened.`

// ActionInvoker is the read-only view of the action registry the resolver uses.
type ActionInvoker interface {
	Tools() []entities.ToolSpec
	Has(name string) bool
	Invoke(ctx context.Context, name string, args map[string]any) (entities.ActionResult, error)
}

var _ ActionInvoker = (*action.Registry)(nil)

// CommandResolver runs the two-round tool calling exchange: the engine is
// asked with the catalog attached, every requested tool runs, and the results
// go back for a final answer.
type CommandResolver struct {
	engine       repositories.LargeLanguageModel
	actions      ActionInvoker
	systemPrompt string
	logger       *zap.Logger
}

// NewCommandResolver creates a new command resolver
func NewCommandResolver(engine repositories.LargeLanguageModel, actions ActionInvoker, systemPrompt string, logger *zap.Logger) *CommandResolver {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &CommandResolver{
		engine:       engine,
		actions:      actions,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Resolve interprets text. Engine errors in either round are returned; tool
// failures are not, they are reported to the engine and kept in the result.
func (r *CommandResolver) Resolve(ctx context.Context, text string) (Resolution, error) {
	req := entities.CommandRequest{SystemInstruction: r.systemPrompt, Text: text}
	if err := req.Validate(); err != nil {
		return Resolution{}, err
	}

	session, err := r.engine.GenerateChat(ctx, req.SystemInstruction, r.actions.Tools())
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to open chat session: %w", err)
	}

	first, err := session.SendMessage(ctx, req.Text)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to send command: %w", err)
	}
	if len(first.ToolCalls) == 0 {
		return Resolution{Kind: ResolutionFinalAnswer, Text: first.Content}, nil
	}

	invocations := make([]entities.ActionInvocation, 0, len(first.ToolCalls))
	results := make([]repositories.ToolResult, 0, len(first.ToolCalls))
	for _, call := range first.ToolCalls {
		inv := r.execute(ctx, call)
		invocations = append(invocations, inv)
		results = append(results, repositories.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: toolMessage(inv),
		})
	}

	final, err := session.SubmitToolResults(ctx, results)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to submit tool results: %w", err)
	}

	return Resolution{Kind: ResolutionActionResult, Text: final.Content, Invocations: invocations}, nil
}

func (r *CommandResolver) execute(ctx context.Context, call entities.ToolCall) entities.ActionInvocation {
	inv := entities.ActionInvocation{ToolCallID: call.ID, ToolName: call.Name, Arguments: call.Arguments}

	if !r.actions.Has(call.Name) {
		inv.Err = fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		r.logger.Error("Engine requested an unknown tool",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID))
		return inv
	}
	if call.Arguments == nil && call.RawArguments != "" {
		inv.Err = fmt.Errorf("%w: arguments are not a JSON object", action.ErrInvalidArguments)
		r.logger.Warn("Tool call arguments rejected", zap.String("tool", call.Name), zap.Error(inv.Err))
		return inv
	}

	result, err := r.actions.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		if errors.Is(err, action.ErrUnknownAction) {
			err = fmt.Errorf("%w: %v", ErrUnknownTool, err)
			r.logger.Error("Engine requested an unknown tool", zap.String("tool", call.Name), zap.Error(err))
		} else {
			r.logger.Warn("Tool call arguments rejected", zap.String("tool", call.Name), zap.Error(err))
		}
		inv.Err = err
		return inv
	}

	inv.Result = result
	r.logger.Info("Tool executed",
		zap.String("tool", call.Name),
		zap.String("result", string(result.Kind)))
	return inv
}

// toolMessage is the JSON the engine sees for one invocation.
func toolMessage(inv entities.ActionInvocation) string {
	var payload map[string]any
	switch {
	case errors.Is(inv.Err, ErrUnknownTool):
		payload = map[string]any{"status": "error", "type": "UnknownTool", "error": inv.Err.Error()}
	case errors.Is(inv.Err, action.ErrInvalidArguments):
		payload = map[string]any{"status": "error", "type": "InvalidArguments", "error": inv.Err.Error()}
	case inv.Err != nil:
		payload = map[string]any{"status": "error", "type": "ActionError", "error": inv.Err.Error()}
	case inv.Result.Kind == entities.ResultSucceeded:
		payload = map[string]any{"status": "ok", "result": inv.Result.Value}
	case inv.Result.Kind == entities.ResultNotImplemented:
		payload = map[string]any{"status": "not_implemented", "message": inv.Result.Message}
	default:
		payload = map[string]any{"status": "failed", "error": inv.Result.Message}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","type":"ActionError","error":%q}`, err.Error())
	}
	return string(b)
}
