package entities

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Encoding says whether an AudioClip carries a container or bare PCM samples.
type Encoding string

const (
	EncodingContainer Encoding = "container"
	EncodingRaw       Encoding = "raw"
)

// Streaming clients send 16 kHz mono 16-bit little-endian PCM.
const (
	DefaultSampleRateHz    = 16000
	DefaultChannelCount    = 1
	DefaultSampleWidthBits = 16
)

// AudioFormat describes how the bytes of an AudioClip are laid out.
type AudioFormat struct {
	SampleRateHz    int      `json:"sample_rate_hz"`
	ChannelCount    int      `json:"channel_count"`
	SampleWidthBits int      `json:"sample_width_bits"`
	Encoding        Encoding `json:"encoding"`
}

// StreamingFormat is the fixed PCM layout of websocket audio frames.
func StreamingFormat() AudioFormat {
	return AudioFormat{
		SampleRateHz:    DefaultSampleRateHz,
		ChannelCount:    DefaultChannelCount,
		SampleWidthBits: DefaultSampleWidthBits,
		Encoding:        EncodingRaw,
	}
}

// SampleWidthBytes returns the width of one sample of one channel.
func (f AudioFormat) SampleWidthBytes() int {
	return f.SampleWidthBits / 8
}

// Validate checks the parameters needed to frame raw PCM.
func (f AudioFormat) Validate() error {
	if f.SampleRateHz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRateHz)
	}
	if f.ChannelCount <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.ChannelCount)
	}
	if f.SampleWidthBits%8 != 0 || f.SampleWidthBits < 8 || f.SampleWidthBits > 32 {
		return fmt.Errorf("unsupported sample width of %d bits", f.SampleWidthBits)
	}
	return nil
}

// AudioClip is one utterance as received from a client. It lives for a single
// request and is never stored.
type AudioClip struct {
	Data     []byte      `json:"-"`
	Filename string      `json:"filename,omitempty"`
	Format   AudioFormat `json:"format"`
}

// IsRaw reports whether the clip still needs to be wrapped in a container.
func (c AudioClip) IsRaw() bool {
	return c.Format.Encoding == EncodingRaw
}

// Extension returns the lower-cased filename extension without the dot, or ""
// when the filename has none.
func (c AudioClip) Extension() string {
	ext := filepath.Ext(c.Filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// TranscriptionResult is the text heard in a clip. IsEmpty is set when the
// engine recognized nothing.
type TranscriptionResult struct {
	Text    string `json:"text"`
	IsEmpty bool   `json:"is_empty"`
}

// NoSpeech is the result for audio in which nothing was recognized.
func NoSpeech() TranscriptionResult {
	return TranscriptionResult{IsEmpty: true}
}

// TranslationResult holds the lower-cased translation of a transcript.
type TranslationResult struct {
	Text string `json:"text"`
}

// CommandRequest is what the reasoning engine is asked on the first round.
type CommandRequest struct {
	SystemInstruction string `json:"system_instruction"`
	Text              string `json:"text"`
}

func (r CommandRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("command text is required")
	}
	return nil
}
