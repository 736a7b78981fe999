package repositories

import (
	"context"

	"github.com/revgen/voicecmd/domain/entities"
)

// LargeLanguageModel abstracts any chat/LLM provider that supports tool calling
type LargeLanguageModel interface {
	// GenerateChat opens a session with a system instruction and the tools the
	// model may call. Sessions are never shared between requests.
	GenerateChat(ctx context.Context, systemInstruction string, tools []entities.ToolSpec) (ChatSession, error)
}

// ChatSession represents one two-round exchange with the model
type ChatSession interface {
	// SendMessage sends the user text with the tool catalog attached.
	SendMessage(ctx context.Context, text string) (ChatReply, error)
	// SubmitToolResults returns tool outputs for the calls of the previous
	// reply, without re-declaring tools, and returns the final reply.
	SubmitToolResults(ctx context.Context, results []ToolResult) (ChatReply, error)
}

// ChatReply is a model turn: free text, tool calls, or both.
type ChatReply struct {
	Content   string              `json:"content"`
	ToolCalls []entities.ToolCall `json:"tool_calls,omitempty"`
}

// ToolResult is the serialized output of one tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}
