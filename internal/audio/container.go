package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnreadableContainer is returned when a payload looks like a known
// container but its header cannot be parsed.
var ErrUnreadableContainer = errors.New("unreadable audio container")

// Kind identifies an audio container format.
type Kind string

const (
	KindUnknown Kind = ""
	KindWAV     Kind = "wav"
	KindMP3     Kind = "mp3"
	KindMP4     Kind = "m4a"
	KindOgg     Kind = "ogg"
	KindFLAC    Kind = "flac"
)

// Sniff identifies the container of data from its leading bytes. A bare MPEG
// frame sync is only trusted once an mp3 decoder accepts the stream, since
// PCM samples can produce the same two bytes.
func Sniff(data []byte) Kind {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return KindWAV
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return KindMP3
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return KindMP4
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return KindOgg
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return KindFLAC
	case isFrameSync(data):
		if _, err := mp3.NewDecoder(bytes.NewReader(data)); err == nil {
			return KindMP3
		}
	}
	return KindUnknown
}

// IsContainer reports whether data already carries a recognized container.
func IsContainer(data []byte) bool {
	return Sniff(data) != KindUnknown
}

func isFrameSync(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	// 11 sync bits, a version other than reserved, and a layer other than reserved.
	return data[0] == 0xff && data[1]&0xe0 == 0xe0 && data[1]&0x18 != 0x08 && data[1]&0x06 != 0
}

// Header is the PCM layout declared by a WAV container.
type Header struct {
	SampleRateHz int
	ChannelCount int
	BitDepth     int
}

// ReadHeader parses the fmt chunk of a WAV container.
func ReadHeader(container []byte) (Header, error) {
	dec := wav.NewDecoder(bytes.NewReader(container))
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrUnreadableContainer, err)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrUnreadableContainer)
	}
	return Header{
		SampleRateHz: int(dec.SampleRate),
		ChannelCount: int(dec.NumChans),
		BitDepth:     int(dec.BitDepth),
	}, nil
}

// Info is what Probe learns about a container.
type Info struct {
	Kind Kind
	// SampleRateHz is zero when the container's rate is not inspected.
	SampleRateHz int
}

// Probe identifies the container and, for WAV and MP3, its declared sample rate.
func Probe(container []byte) (Info, error) {
	info := Info{Kind: Sniff(container)}

	switch info.Kind {
	case KindWAV:
		hdr, err := ReadHeader(container)
		if err != nil {
			return info, err
		}
		info.SampleRateHz = hdr.SampleRateHz
	case KindMP3:
		dec, err := mp3.NewDecoder(bytes.NewReader(container))
		if err != nil {
			return info, fmt.Errorf("%w: %v", ErrUnreadableContainer, err)
		}
		info.SampleRateHz = dec.SampleRate()
	}

	return info, nil
}

// ExtractPCM returns the declared layout and the sample bytes of a WAV container.
func ExtractPCM(container []byte) (Header, []byte, error) {
	hdr, err := ReadHeader(container)
	if err != nil {
		return Header{}, nil, err
	}

	dec := wav.NewDecoder(bytes.NewReader(container))
	if err := dec.FwdToPCM(); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrUnreadableContainer, err)
	}
	pcm, err := io.ReadAll(io.LimitReader(dec.PCMChunk.R, int64(dec.PCMChunk.Size)))
	if err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrUnreadableContainer, err)
	}
	return hdr, pcm, nil
}
