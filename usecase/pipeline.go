package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
	"github.com/revgen/voicecmd/internal/audio"
)

// PipelineConfig holds the fixed parameters of the pipeline
type PipelineConfig struct {
	SourceLanguage string
	TargetLanguage string
	// SampleRate is the rate uploaded containers are expected to carry.
	SampleRate        int
	AllowedExtensions []string
}

// DefaultPipelineConfig transcribes Malayalam and translates to English.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SourceLanguage:    "ml-IN",
		TargetLanguage:    "en",
		SampleRate:        entities.DefaultSampleRateHz,
		AllowedExtensions: []string{"wav", "mp3", "m4a"},
	}
}

// Processor turns one clip into an Outcome. Transports depend on this only.
type Processor interface {
	Process(ctx context.Context, clip entities.AudioClip) Outcome
}

// Pipeline orchestrates framing, transcription, translation and, in command
// mode, resolution. It keeps no per-request state and may serve many
// requests at once.
type Pipeline struct {
	speechToText repositories.SpeechToText
	translator   repositories.Translator
	resolver     *CommandResolver
	config       PipelineConfig
	allowed      map[string]bool
	logger       *zap.Logger
}

var _ Processor = (*Pipeline)(nil)

// NewPipeline creates a new pipeline. resolver may be nil when commands are
// not resolved.
func NewPipeline(
	stt repositories.SpeechToText,
	translator repositories.Translator,
	resolver *CommandResolver,
	config PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	allowed := make(map[string]bool, len(config.AllowedExtensions))
	for _, ext := range config.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Pipeline{
		speechToText: stt,
		translator:   translator,
		resolver:     resolver,
		config:       config,
		allowed:      allowed,
		logger:       logger,
	}
}

// Process transcribes and translates clip. Every failure, including a panic
// in an adapter, comes back as an Outcome.
func (p *Pipeline) Process(ctx context.Context, clip entities.AudioClip) (out Outcome) {
	logger := p.logger.With(zap.String("request_id", uuid.New().String()))
	stage := StageFraming
	defer recoverOutcome(logger, &stage, &out)

	if clip.Data == nil && clip.Filename == "" && !clip.IsRaw() {
		return invalidInput(ReasonMissingAudio)
	}
	if !clip.IsRaw() && !p.allowed[clip.Extension()] {
		logger.Info("Rejected upload", zap.String("filename", clip.Filename))
		return invalidInput(ReasonInvalidFormat)
	}
	// An empty recording holds no speech; the engines are not consulted.
	if len(clip.Data) == 0 {
		logger.Info("No speech detected", zap.Int("bytes", 0), zap.String("filename", clip.Filename))
		return noSpeech()
	}

	data, sampleRate := clip.Data, p.config.SampleRate
	if clip.IsRaw() {
		format := clip.Format
		framed, err := audio.Frame(data, format.ChannelCount, format.SampleWidthBytes(), format.SampleRateHz)
		if err != nil {
			return invalidInput(err.Error())
		}
		data, sampleRate = framed, format.SampleRateHz
	}

	stage = StageTranscription
	start := time.Now()
	transcript, err := p.speechToText.Transcribe(ctx, data, p.config.SourceLanguage, sampleRate)
	transcribeTook := time.Since(start)
	if err != nil {
		if errors.Is(err, repositories.ErrSampleRateMismatch) || errors.Is(err, audio.ErrUnreadableContainer) {
			return invalidInput(err.Error())
		}
		logger.Error("Transcription failed", zap.Error(err), zap.Duration("duration", transcribeTook))
		return upstreamFailure(StageTranscription, err, "UpstreamError")
	}
	if transcript.IsEmpty {
		logger.Info("No speech detected", zap.Int("bytes", len(data)), zap.Duration("transcription", transcribeTook))
		return noSpeech()
	}

	stage = StageTranslation
	start = time.Now()
	translation, err := p.translator.Translate(ctx, transcript.Text, p.config.TargetLanguage)
	translateTook := time.Since(start)
	if err != nil {
		logger.Error("Translation failed", zap.Error(err), zap.Duration("duration", translateTook))
		return upstreamFailure(StageTranslation, err, "UpstreamError")
	}

	logger.Info("Clip processed",
		zap.Int("bytes", len(data)),
		zap.Duration("transcription", transcribeTook),
		zap.Duration("translation", translateTook))
	logger.Debug("Clip text",
		zap.String("original_text", transcript.Text),
		zap.String("translated_text", translation.Text))

	return success(transcript.Text, translation.Text)
}

// ProcessCommand runs Process and resolves the translated text into an
// action. Without a resolver it is the same as Process.
func (p *Pipeline) ProcessCommand(ctx context.Context, clip entities.AudioClip) (out Outcome) {
	out = p.Process(ctx, clip)
	if out.Kind != OutcomeSuccess || p.resolver == nil {
		return out
	}

	stage := StageReasoning
	defer recoverOutcome(p.logger, &stage, &out)

	start := time.Now()
	resolution, err := p.resolver.Resolve(ctx, out.TranslatedText)
	if err != nil {
		p.logger.Error("Command resolution failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return upstreamFailure(StageReasoning, err, "UpstreamError")
	}

	p.logger.Info("Command resolved",
		zap.String("kind", string(resolution.Kind)),
		zap.Int("invocations", len(resolution.Invocations)),
		zap.Int("failures", len(resolution.Failures())),
		zap.Duration("duration", time.Since(start)))

	out.Resolution = &resolution
	return out
}

// CommandMode returns a Processor that resolves commands on every clip.
func (p *Pipeline) CommandMode() Processor {
	return commandMode{p}
}

type commandMode struct {
	*Pipeline
}

func (c commandMode) Process(ctx context.Context, clip entities.AudioClip) Outcome {
	return c.ProcessCommand(ctx, clip)
}

func recoverOutcome(logger *zap.Logger, stage *Stage, out *Outcome) {
	if r := recover(); r != nil {
		logger.Error("Recovered from panic in pipeline", zap.String("stage", string(*stage)), zap.Any("panic", r))
		*out = Outcome{
			Kind:      OutcomeUpstreamFailure,
			Stage:     *stage,
			Message:   fmt.Sprint(r),
			ErrorType: "InternalError",
		}
	}
}
