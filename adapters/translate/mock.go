package translate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// MockTranslator translates a handful of known phrases and lower-cases
// anything else unchanged.
type MockTranslator struct {
	phrases map[string]string
	logger  *zap.Logger
}

// NewMockTranslator creates a new mock translation service
func NewMockTranslator(logger *zap.Logger) repositories.Translator {
	return &MockTranslator{
		phrases: map[string]string{
			"ടിവി ഓൺ ചെയ്യൂ": "turn on the tv",
			"ടിവി ഓഫ് ചെയ്യൂ": "turn off the tv",
			"ശബ്ദം കൂട്ടൂ": "increase the volume",
			"ഇരുപത്തഞ്ച് ഗുണം നാല് അധികം പത്ത്": "what is 25 * 4 + 10",
		},
		logger: logger,
	}
}

func (m *MockTranslator) Translate(ctx context.Context, text string, targetLanguage string) (entities.TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return entities.TranslationResult{}, ErrEmptyText
	}
	m.logger.Info("Mock translation", zap.String("target", targetLanguage), zap.Int("chars", len(text)))

	if translated, ok := m.phrases[strings.TrimSpace(text)]; ok {
		return entities.TranslationResult{Text: translated}, nil
	}
	return entities.TranslationResult{Text: strings.ToLower(text)}, nil
}
