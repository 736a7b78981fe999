package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidAudioParameters is returned when raw PCM cannot be framed with the
// given layout.
var ErrInvalidAudioParameters = errors.New("invalid audio parameters")

// wavFormatPCM is the WAVE_FORMAT_PCM tag of the fmt chunk.
const wavFormatPCM = 1

// Frame wraps little-endian interleaved PCM samples in a RIFF/WAVE container.
// Input that already carries a recognized container is returned unchanged.
func Frame(raw []byte, channelCount, sampleWidthBytes, sampleRateHz int) ([]byte, error) {
	if IsContainer(raw) {
		return raw, nil
	}

	switch {
	case sampleRateHz <= 0:
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidAudioParameters, sampleRateHz)
	case channelCount <= 0:
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidAudioParameters, channelCount)
	case sampleWidthBytes < 1 || sampleWidthBytes > 4:
		return nil, fmt.Errorf("%w: unsupported sample width of %d bytes", ErrInvalidAudioParameters, sampleWidthBytes)
	}

	frameSize := channelCount * sampleWidthBytes
	if len(raw)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames",
			ErrInvalidAudioParameters, len(raw), frameSize)
	}

	bitDepth := sampleWidthBytes * 8
	out := &seekBuffer{}
	enc := wav.NewEncoder(out, sampleRateHz, bitDepth, channelCount, wavFormatPCM)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channelCount, SampleRate: sampleRateHz},
		Data:           decodeSamples(raw, sampleWidthBytes),
		SourceBitDepth: bitDepth,
	}
	// Write also emits the RIFF and fmt headers, so it runs for empty input too.
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav container: %w", err)
	}

	return out.Bytes(), nil
}

// decodeSamples turns little-endian bytes into one int per sample. 8-bit PCM is
// unsigned in WAV and is kept as-is; wider samples are signed.
func decodeSamples(raw []byte, width int) []int {
	samples := make([]int, 0, len(raw)/width)
	for i := 0; i+width <= len(raw); i += width {
		switch width {
		case 1:
			samples = append(samples, int(raw[i]))
		case 2:
			samples = append(samples, int(int16(binary.LittleEndian.Uint16(raw[i:]))))
		case 3:
			v := int32(raw[i]) | int32(raw[i+1])<<8 | int32(raw[i+2])<<16
			if v&0x800000 != 0 {
				v |= ^0xffffff
			}
			samples = append(samples, int(v))
		case 4:
			samples = append(samples, int(int32(binary.LittleEndian.Uint32(raw[i:]))))
		}
	}
	return samples
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back to patch
// chunk sizes once all samples are written.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = int(abs)
	return abs, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.buf
}
