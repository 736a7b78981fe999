package repositories

import (
	"context"
	"errors"

	"github.com/revgen/voicecmd/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts one containerized utterance to text. A clip with no
	// recognizable speech yields an empty result, not an error.
	Transcribe(ctx context.Context, audioData []byte, languageCode string, sampleRateHz int) (entities.TranscriptionResult, error)
}

// ErrSampleRateMismatch is returned when a container declares a different
// sample rate than the one requested. Recognizers never resample.
var ErrSampleRateMismatch = errors.New("sample rate mismatch")
