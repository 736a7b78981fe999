package repositories

import (
	"context"

	"github.com/revgen/voicecmd/domain/entities"
)

// Translator abstracts machine translation services
type Translator interface {
	// Translate converts text into the target language. The result is lower-cased.
	Translate(ctx context.Context, text string, targetLanguage string) (entities.TranslationResult, error)
}
