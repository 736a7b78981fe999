package llm

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	defaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	defaultOpenAIModel   = "llama-3.3-70b-versatile"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultMaxTokens     = 4096
)

// Config holds the settings shared by every reasoning engine.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// HTTPClient carries proxy and timeout settings; nil uses the SDK default.
	HTTPClient *http.Client
}

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	return nil
}

// EngineError wraps a failure reported by a reasoning engine.
type EngineError struct {
	Engine   string
	Category string
	Message  string
	Err      error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s reasoning engine error (%s): %s", e.Engine, e.Category, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ErrorType names the failure for clients.
func (e *EngineError) ErrorType() string { return "ReasoningEngineError" }

// ErrNoCandidates is returned when the engine answers with nothing to read.
var ErrNoCandidates = errors.New("engine returned no candidates")
