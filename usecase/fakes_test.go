package usecase

import (
	"context"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

type fakeSpeechToText struct {
	result     entities.TranscriptionResult
	err        error
	panicValue any
	calls      int
	lastAudio  []byte
	lastRate   int
	lastLang   string
}

func (f *fakeSpeechToText) Transcribe(ctx context.Context, audioData []byte, languageCode string, sampleRateHz int) (entities.TranscriptionResult, error) {
	f.calls++
	f.lastAudio = audioData
	f.lastRate = sampleRateHz
	f.lastLang = languageCode
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	return f.result, f.err
}

type fakeTranslator struct {
	result     entities.TranslationResult
	err        error
	calls      int
	lastText   string
	lastTarget string
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, targetLanguage string) (entities.TranslationResult, error) {
	f.calls++
	f.lastText = text
	f.lastTarget = targetLanguage
	return f.result, f.err
}

// scriptedLLM replays one reply per round and records what it was sent.
type scriptedLLM struct {
	replies   []repositories.ChatReply
	errs      []error
	tools     []entities.ToolSpec
	system    string
	sent      []string
	submitted [][]repositories.ToolResult
}

func (s *scriptedLLM) GenerateChat(ctx context.Context, systemInstruction string, tools []entities.ToolSpec) (repositories.ChatSession, error) {
	s.system = systemInstruction
	s.tools = tools
	return &scriptedSession{llm: s}, nil
}

type scriptedSession struct {
	llm   *scriptedLLM
	round int
}

func (s *scriptedSession) next() (repositories.ChatReply, error) {
	i := s.round
	s.round++
	var err error
	if i < len(s.llm.errs) {
		err = s.llm.errs[i]
	}
	if err != nil {
		return repositories.ChatReply{}, err
	}
	return s.llm.replies[i], nil
}

func (s *scriptedSession) SendMessage(ctx context.Context, text string) (repositories.ChatReply, error) {
	s.llm.sent = append(s.llm.sent, text)
	return s.next()
}

func (s *scriptedSession) SubmitToolResults(ctx context.Context, results []repositories.ToolResult) (repositories.ChatReply, error) {
	s.llm.submitted = append(s.llm.submitted, results)
	return s.next()
}

// countingInvoker wraps an invoker and counts Invoke calls.
type countingInvoker struct {
	ActionInvoker
	invokes int
}

func (c *countingInvoker) Invoke(ctx context.Context, name string, args map[string]any) (entities.ActionResult, error) {
	c.invokes++
	return c.ActionInvoker.Invoke(ctx, name, args)
}

type typedTestError struct{ msg string }

func (e *typedTestError) Error() string     { return e.msg }
func (e *typedTestError) ErrorType() string { return "TranslationEngineError" }
