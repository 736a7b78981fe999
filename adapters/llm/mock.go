package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// MockLLM is a keyword-driven stand-in for a reasoning engine. It emits the
// same tool calls a real engine would for simple commands, which lets the
// full pipeline run without an API key.
type MockLLM struct {
	logger *zap.Logger
}

// NewMockLLM creates a new mock reasoning engine
func NewMockLLM(logger *zap.Logger) repositories.LargeLanguageModel {
	return &MockLLM{logger: logger}
}

func (m *MockLLM) GenerateChat(ctx context.Context, systemInstruction string, tools []entities.ToolSpec) (repositories.ChatSession, error) {
	available := make(map[string]bool, len(tools))
	for _, t := range tools {
		available[t.Name] = true
	}
	return &MockChatSession{tools: available, logger: m.logger}, nil
}

// MockChatSession implements repositories.ChatSession
type MockChatSession struct {
	tools  map[string]bool
	calls  []entities.ToolCall
	logger *zap.Logger
}

var expressionPattern = regexp.MustCompile(`[0-9(][0-9\s.()]*[+\-*/%^][0-9\s.+\-*/%^()]*[0-9)]`)

var deviceKeywords = []struct {
	phrases   []string
	operation entities.DeviceOperation
}{
	{[]string{"turn on", "switch on", "power on"}, entities.OperationPowerOn},
	{[]string{"turn off", "switch off", "power off"}, entities.OperationPowerOff},
	{[]string{"unmute", "volume up", "increase the volume", "louder"}, entities.OperationVolumeUp},
	{[]string{"volume down", "decrease the volume", "quieter"}, entities.OperationVolumeDown},
	{[]string{"mute"}, entities.OperationVolumeMute},
	{[]string{"next channel", "channel up"}, entities.OperationChannelUp},
	{[]string{"previous channel", "channel down"}, entities.OperationChannelDown},
}

func (s *MockChatSession) SendMessage(ctx context.Context, text string) (repositories.ChatReply, error) {
	if err := ctx.Err(); err != nil {
		return repositories.ChatReply{}, err
	}
	lower := strings.ToLower(text)

	if expr := expressionPattern.FindString(lower); expr != "" && s.tools["calculate"] {
		return s.call("calculate", map[string]any{"expression": strings.TrimSpace(expr)}), nil
	}

	device := entities.DeviceTV
	if strings.Contains(lower, "modem") || strings.Contains(lower, "wifi") {
		device = entities.DeviceModem
	}
	for _, kw := range deviceKeywords {
		for _, phrase := range kw.phrases {
			if strings.Contains(lower, phrase) && s.tools[string(kw.operation)] {
				return s.call(string(kw.operation), map[string]any{"device": device}), nil
			}
		}
	}

	return repositories.ChatReply{Content: "I can switch your TV or modem and do simple sums. What would you like?"}, nil
}

func (s *MockChatSession) call(name string, args map[string]any) repositories.ChatReply {
	call := entities.ToolCall{ID: fmt.Sprintf("call_%d", len(s.calls)+1), Name: name, Arguments: args}
	s.calls = append(s.calls, call)
	s.logger.Debug("Mock tool call", zap.String("tool", name))
	return repositories.ChatReply{ToolCalls: []entities.ToolCall{call}}
}

func (s *MockChatSession) SubmitToolResults(ctx context.Context, results []repositories.ToolResult) (repositories.ChatReply, error) {
	if err := ctx.Err(); err != nil {
		return repositories.ChatReply{}, err
	}

	sentences := make([]string, 0, len(results))
	for _, r := range results {
		var payload map[string]any
		if err := json.Unmarshal([]byte(r.Content), &payload); err != nil {
			sentences = append(sentences, fmt.Sprintf("I could not read the result of %s.", r.Name))
			continue
		}
		switch {
		case payload["error"] != nil:
			sentences = append(sentences, fmt.Sprintf("Sorry, %s did not work: %v.", r.Name, payload["error"]))
		case r.Name == "calculate":
			sentences = append(sentences, fmt.Sprintf("The answer is %v.", payload["result"]))
		case payload["status"] == "not_implemented":
			sentences = append(sentences, fmt.Sprintf("I cannot %s yet.", strings.ReplaceAll(r.Name, "_", " ")))
		default:
			sentences = append(sentences, fmt.Sprintf("Done, %s.", strings.ReplaceAll(r.Name, "_", " ")))
		}
	}
	return repositories.ChatReply{Content: strings.Join(sentences, " ")}, nil
}
