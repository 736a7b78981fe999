package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
	"github.com/revgen/voicecmd/internal/audio"
)

// ErrSampleRateMismatch is returned when the container declares a different
// sample rate than the one requested.
var ErrSampleRateMismatch = repositories.ErrSampleRateMismatch

// EngineError wraps a failure reported by the recognition engine.
type EngineError struct {
	Category string
	Message  string
	Err      error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("transcription engine error (%s): %s", e.Category, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ErrorType names the failure for clients.
func (e *EngineError) ErrorType() string { return "TranscriptionEngineError" }

// recognizer is the part of speech.Client the adapter calls.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client  recognizer
	initErr error
	logger  *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates the client once for the process. Missing
// credentials do not fail startup; every call reports them instead.
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) *GoogleSpeechToText {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		logger.Warn("Speech client unavailable, transcription requests will fail", zap.Error(err))
		return &GoogleSpeechToText{initErr: err, logger: logger}
	}
	return &GoogleSpeechToText{client: client, logger: logger}
}

func newGoogleSpeechToText(client recognizer, logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{client: client, logger: logger}
}

// Transcribe sends one synchronous recognition request.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audioData []byte, languageCode string, sampleRateHz int) (entities.TranscriptionResult, error) {
	if g.initErr != nil {
		return entities.TranscriptionResult{}, &EngineError{
			Category: "ClientUnavailable",
			Message:  g.initErr.Error(),
			Err:      g.initErr,
		}
	}

	info, err := audio.Probe(audioData)
	if err != nil {
		return entities.TranscriptionResult{}, fmt.Errorf("failed to read audio container: %w", err)
	}
	if info.SampleRateHz != 0 && info.SampleRateHz != sampleRateHz {
		return entities.TranscriptionResult{}, fmt.Errorf("%w: container declares %d Hz, request is for %d Hz",
			ErrSampleRateMismatch, info.SampleRateHz, sampleRateHz)
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   getAudioEncoding(info.Kind),
			SampleRateHertz:            int32(sampleRateHz),
			AudioChannelCount:          1,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	}

	start := time.Now()
	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		g.logger.Error("Speech recognition failed",
			zap.String("language", languageCode),
			zap.Int("bytes", len(audioData)),
			zap.Error(err))
		return entities.TranscriptionResult{}, newEngineError(err)
	}

	result := bestTranscript(resp)
	g.logger.Debug("Speech recognized",
		zap.Int("results", len(resp.GetResults())),
		zap.Bool("empty", result.IsEmpty),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// Close releases the underlying client.
func (g *GoogleSpeechToText) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// bestTranscript joins the top alternative of every result with a space.
func bestTranscript(resp *speechpb.RecognizeResponse) entities.TranscriptionResult {
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(alternatives[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return entities.NoSpeech()
	}
	return entities.TranscriptionResult{Text: strings.Join(parts, " ")}
}

func newEngineError(err error) *EngineError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &EngineError{Category: "DeadlineExceeded", Message: err.Error(), Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &EngineError{Category: "Canceled", Message: err.Error(), Err: err}
	}
	if st, ok := status.FromError(err); ok {
		return &EngineError{Category: st.Code().String(), Message: st.Message(), Err: err}
	}
	return &EngineError{Category: "Unknown", Message: err.Error(), Err: err}
}

// getAudioEncoding maps a container to the recognition encoding. Containers
// that carry their own header are left for the engine to detect.
func getAudioEncoding(kind audio.Kind) speechpb.RecognitionConfig_AudioEncoding {
	switch kind {
	case audio.KindWAV:
		return speechpb.RecognitionConfig_LINEAR16
	case audio.KindFLAC:
		return speechpb.RecognitionConfig_FLAC
	case audio.KindOgg:
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
