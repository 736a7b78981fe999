package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/translate"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// ErrEmptyText is returned when there is nothing to translate.
var ErrEmptyText = errors.New("text to translate is empty")

// EngineError wraps a failure reported by the translation engine.
type EngineError struct {
	Category string
	Message  string
	Err      error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("translation engine error (%s): %s", e.Category, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ErrorType names the failure for clients.
func (e *EngineError) ErrorType() string { return "TranslationEngineError" }

// translator is the part of translate.Client the adapter calls.
type translator interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// GoogleTranslator implements Translator for Google Cloud Translation
type GoogleTranslator struct {
	client  translator
	initErr error
	source  language.Tag
	logger  *zap.Logger
}

var _ repositories.Translator = (*GoogleTranslator)(nil)

// NewGoogleTranslator creates the client once for the process. sourceLanguage
// may be empty to let the engine detect it.
func NewGoogleTranslator(ctx context.Context, sourceLanguage string, logger *zap.Logger, opts ...option.ClientOption) *GoogleTranslator {
	g := &GoogleTranslator{logger: logger, source: parseSource(sourceLanguage, logger)}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		logger.Warn("Translation client unavailable, translation requests will fail", zap.Error(err))
		g.initErr = err
		return g
	}
	g.client = client
	return g
}

func newGoogleTranslator(client translator, sourceLanguage string, logger *zap.Logger) *GoogleTranslator {
	return &GoogleTranslator{client: client, source: parseSource(sourceLanguage, logger), logger: logger}
}

func parseSource(code string, logger *zap.Logger) language.Tag {
	if code == "" {
		return language.Und
	}
	tag, err := language.Parse(code)
	if err != nil {
		logger.Warn("Ignoring unparsable source language", zap.String("language", code), zap.Error(err))
		return language.Und
	}
	// The translation API takes bare language codes ("ml", not "ml-IN").
	base, _ := tag.Base()
	return language.Make(base.String())
}

// Translate requests a plain-text translation and lower-cases the result.
func (g *GoogleTranslator) Translate(ctx context.Context, text string, targetLanguage string) (entities.TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return entities.TranslationResult{}, ErrEmptyText
	}
	if g.initErr != nil {
		return entities.TranslationResult{}, &EngineError{
			Category: "ClientUnavailable",
			Message:  g.initErr.Error(),
			Err:      g.initErr,
		}
	}

	target, err := language.Parse(targetLanguage)
	if err != nil {
		return entities.TranslationResult{}, &EngineError{
			Category: "InvalidLanguage",
			Message:  fmt.Sprintf("invalid target language %q", targetLanguage),
			Err:      err,
		}
	}

	opts := &translate.Options{Format: translate.Text}
	if g.source != language.Und {
		opts.Source = g.source
	}

	translations, err := g.client.Translate(ctx, []string{text}, target, opts)
	if err != nil {
		g.logger.Error("Translation failed",
			zap.String("target", targetLanguage),
			zap.Error(err))
		return entities.TranslationResult{}, newEngineError(err)
	}
	if len(translations) == 0 {
		return entities.TranslationResult{}, &EngineError{
			Category: "EmptyResponse",
			Message:  "engine returned no translations",
		}
	}

	g.logger.Debug("Text translated",
		zap.String("target", target.String()),
		zap.String("detected_source", translations[0].Source.String()))

	return entities.TranslationResult{Text: cases.Lower(target).String(translations[0].Text)}, nil
}

// Close releases the underlying client.
func (g *GoogleTranslator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func newEngineError(err error) *EngineError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &EngineError{Category: "DeadlineExceeded", Message: err.Error(), Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &EngineError{Category: "Canceled", Message: err.Error(), Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		category := http.StatusText(apiErr.Code)
		if len(apiErr.Errors) > 0 && apiErr.Errors[0].Reason != "" {
			category = apiErr.Errors[0].Reason
		}
		message := apiErr.Message
		if message == "" {
			message = err.Error()
		}
		return &EngineError{Category: category, Message: message, Err: err}
	}

	if st, ok := status.FromError(err); ok {
		return &EngineError{Category: st.Code().String(), Message: st.Message(), Err: err}
	}
	return &EngineError{Category: "Unknown", Message: err.Error(), Err: err}
}
