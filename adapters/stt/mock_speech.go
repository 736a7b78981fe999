package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
	"github.com/revgen/voicecmd/internal/audio"
)

// MockSpeechToText is a placeholder implementation for speech recognition. It
// hears nothing in digitally silent WAV audio and a fixed phrase otherwise.
type MockSpeechToText struct {
	transcript string
	logger     *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(transcript string, logger *zap.Logger) repositories.SpeechToText {
	if transcript == "" {
		transcript = "ടിവി ഓൺ ചെയ്യൂ"
	}
	return &MockSpeechToText{
		transcript: transcript,
		logger:     logger,
	}
}

func (s *MockSpeechToText) Transcribe(ctx context.Context, audioData []byte, languageCode string, sampleRateHz int) (entities.TranscriptionResult, error) {
	s.logger.Info("Mock transcription",
		zap.Int("bytes", len(audioData)),
		zap.String("language", languageCode),
		zap.Int("sampleRate", sampleRateHz))

	if err := ctx.Err(); err != nil {
		return entities.TranscriptionResult{}, err
	}
	if isSilent(audioData) {
		return entities.NoSpeech(), nil
	}
	return entities.TranscriptionResult{Text: s.transcript}, nil
}

func isSilent(data []byte) bool {
	samples := data
	if audio.Sniff(data) == audio.KindWAV {
		if len(data) <= 44 {
			return true
		}
		samples = data[44:]
	}
	for _, b := range samples {
		if b != 0 {
			return false
		}
	}
	return true
}
