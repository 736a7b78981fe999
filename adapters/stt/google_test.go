package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/revgen/voicecmd/domain/repositories"
	"github.com/revgen/voicecmd/internal/audio"
)

var _ repositories.SpeechToText = &GoogleSpeechToText{}

type fakeRecognizer struct {
	resp  *speechpb.RecognizeResponse
	err   error
	calls int
	last  *speechpb.RecognizeRequest
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func result(transcripts ...string) *speechpb.SpeechRecognitionResult {
	alts := make([]*speechpb.SpeechRecognitionAlternative, 0, len(transcripts))
	for _, t := range transcripts {
		alts = append(alts, &speechpb.SpeechRecognitionAlternative{Transcript: t})
	}
	return &speechpb.SpeechRecognitionResult{Alternatives: alts}
}

func wavClip(t *testing.T, sampleRate int) []byte {
	t.Helper()
	pcm := make([]byte, 640)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	container, err := audio.Frame(pcm, 1, 2, sampleRate)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	return container
}

func TestTranscribeRequestConfig(t *testing.T) {
	fake := &fakeRecognizer{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{result("ടിവി ഓൺ ചെയ്യൂ")},
	}}
	g := newGoogleSpeechToText(fake, zap.NewNop())

	got, err := g.Transcribe(context.Background(), wavClip(t, 16000), "ml-IN", 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got.IsEmpty || got.Text != "ടിവി ഓൺ ചെയ്യൂ" {
		t.Errorf("Unexpected result: %+v", got)
	}

	cfg := fake.last.GetConfig()
	if cfg.GetAudioChannelCount() != 1 {
		t.Errorf("Expected mono, got %d channels", cfg.GetAudioChannelCount())
	}
	if !cfg.GetEnableAutomaticPunctuation() {
		t.Error("Expected automatic punctuation to be enabled")
	}
	if cfg.GetSampleRateHertz() != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", cfg.GetSampleRateHertz())
	}
	if cfg.GetLanguageCode() != "ml-IN" {
		t.Errorf("Expected ml-IN, got %s", cfg.GetLanguageCode())
	}
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("Expected LINEAR16 for wav, got %s", cfg.GetEncoding())
	}
}

func TestTranscribeEmptyResults(t *testing.T) {
	responses := map[string]*speechpb.RecognizeResponse{
		"no results":         {},
		"blank alternatives": {Results: []*speechpb.SpeechRecognitionResult{result("  "), result()}},
	}

	for name, resp := range responses {
		fake := &fakeRecognizer{resp: resp}
		g := newGoogleSpeechToText(fake, zap.NewNop())

		got, err := g.Transcribe(context.Background(), wavClip(t, 16000), "ml-IN", 16000)
		if err != nil {
			t.Errorf("%s: empty recognition should not be an error, got %v", name, err)
			continue
		}
		if !got.IsEmpty || got.Text != "" {
			t.Errorf("%s: expected empty result, got %+v", name, got)
		}
	}
}

func TestTranscribeJoinsResults(t *testing.T) {
	fake := &fakeRecognizer{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			result("first part", "alternative"),
			result("second part"),
		},
	}}
	g := newGoogleSpeechToText(fake, zap.NewNop())

	got, err := g.Transcribe(context.Background(), wavClip(t, 16000), "ml-IN", 16000)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "first part second part" {
		t.Errorf("Expected best alternatives joined, got %q", got.Text)
	}
}

func TestTranscribeSampleRateMismatch(t *testing.T) {
	fake := &fakeRecognizer{}
	g := newGoogleSpeechToText(fake, zap.NewNop())

	_, err := g.Transcribe(context.Background(), wavClip(t, 44100), "ml-IN", 16000)
	if !errors.Is(err, ErrSampleRateMismatch) {
		t.Fatalf("Expected ErrSampleRateMismatch, got %v", err)
	}
	if fake.calls != 0 {
		t.Error("Engine should not be called on a rate mismatch")
	}
}

func TestTranscribeEngineError(t *testing.T) {
	fake := &fakeRecognizer{err: status.Error(codes.InvalidArgument, "bad sample rate")}
	g := newGoogleSpeechToText(fake, zap.NewNop())

	_, err := g.Transcribe(context.Background(), wavClip(t, 16000), "ml-IN", 16000)

	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected EngineError, got %v", err)
	}
	if engineErr.Category != "InvalidArgument" {
		t.Errorf("Expected InvalidArgument category, got %s", engineErr.Category)
	}
	if engineErr.Message != "bad sample rate" {
		t.Errorf("Expected engine message, got %q", engineErr.Message)
	}
	if engineErr.ErrorType() != "TranscriptionEngineError" {
		t.Errorf("Unexpected error type %s", engineErr.ErrorType())
	}
}

func TestTranscribeWithoutClient(t *testing.T) {
	g := &GoogleSpeechToText{initErr: errors.New("could not find default credentials"), logger: zap.NewNop()}

	_, err := g.Transcribe(context.Background(), wavClip(t, 16000), "ml-IN", 16000)

	var engineErr *EngineError
	if !errors.As(err, &engineErr) || engineErr.Category != "ClientUnavailable" {
		t.Errorf("Expected ClientUnavailable engine error, got %v", err)
	}
}

func TestMockSpeechToText(t *testing.T) {
	mock := NewMockSpeechToText("hello", zap.NewNop())

	silent, err := audio.Frame(make([]byte, 320), 1, 2, 16000)
	if err != nil {
		t.Fatal(err)
	}
	got, err := mock.Transcribe(context.Background(), silent, "ml-IN", 16000)
	if err != nil || !got.IsEmpty {
		t.Errorf("Expected no speech for silence, got %+v, %v", got, err)
	}

	got, err = mock.Transcribe(context.Background(), wavClip(t, 16000), "ml-IN", 16000)
	if err != nil || got.Text != "hello" {
		t.Errorf("Expected fixed transcript, got %+v, %v", got, err)
	}
}
