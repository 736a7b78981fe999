package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/usecase"
)

// EventName names a message in either direction.
type EventName string

// Server to client events
const (
	EventStatus        EventName = "status"
	EventTranscription EventName = "transcription"
	EventError         EventName = "error"
	EventPong          EventName = "pong"
)

// Client to server control events
const (
	EventAudioStart     EventName = "audio_start"
	EventListeningStart EventName = "listening_start"
	EventAudioEnd       EventName = "audio_end"
	EventListeningEnd   EventName = "listening_end"
	EventPing           EventName = "ping"
)

// Error types carried in error events that do not come from an engine.
const (
	ErrorTypeInvalidInput     = "InvalidInput"
	ErrorTypeNoSpeechDetected = "NoSpeechDetected"
	ErrorTypeUtteranceTooLong = "UtteranceTooLong"
	ErrorTypeBusy             = "Busy"
	ErrorTypeBadMessage       = "BadMessage"
)

// Envelope is the JSON shape of every server event.
type Envelope struct {
	Event     EventName   `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// StatusData accompanies status events.
type StatusData struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// TranscriptionData accompanies transcription events.
type TranscriptionData struct {
	OriginalText   string                  `json:"original_text"`
	TranslatedText string                  `json:"translated_text"`
	Answer         string                  `json:"answer,omitempty"`
	Actions        []usecase.ActionSummary `json:"actions,omitempty"`
}

// ErrorData accompanies error events.
type ErrorData struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Stage   string `json:"stage,omitempty"`
}

// ControlMessage is a text frame from the client. Older clients send the
// event name under "type".
type ControlMessage struct {
	Event EventName       `json:"event"`
	Type  EventName       `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// StartData optionally overrides the stream format for the next utterance.
type StartData struct {
	SampleRate  int `json:"sample_rate"`
	Channels    int `json:"channels"`
	SampleWidth int `json:"sample_width"` // bytes
}

var errMissingEvent = errors.New("message missing event field")

// ParseControl decodes a text frame and returns its event name.
func ParseControl(b []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("invalid JSON format: %w", err)
	}
	if msg.Event == "" {
		msg.Event = msg.Type
	}
	if msg.Event == "" {
		return ControlMessage{}, errMissingEvent
	}
	return msg, nil
}

// Format applies the overrides in d to base and validates the result.
func (d StartData) Format(base entities.AudioFormat) (entities.AudioFormat, error) {
	f := base
	if d.SampleRate > 0 {
		f.SampleRateHz = d.SampleRate
	}
	if d.Channels > 0 {
		f.ChannelCount = d.Channels
	}
	if d.SampleWidth > 0 {
		f.SampleWidthBits = d.SampleWidth * 8
	}
	if err := f.Validate(); err != nil {
		return base, err
	}
	return f, nil
}

func newEnvelope(event EventName, data interface{}) Envelope {
	return Envelope{Event: event, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func errorEnvelope(message, errorType string) Envelope {
	return newEnvelope(EventError, ErrorData{Message: message, Type: errorType})
}

// outcomeEnvelope renders a pipeline outcome as the event the client sees.
func outcomeEnvelope(out usecase.Outcome) Envelope {
	switch out.Kind {
	case usecase.OutcomeSuccess:
		data := TranscriptionData{OriginalText: out.OriginalText, TranslatedText: out.TranslatedText}
		if out.Resolution != nil {
			data.Answer = out.Resolution.Text
			data.Actions = out.Resolution.Actions()
		}
		return newEnvelope(EventTranscription, data)
	case usecase.OutcomeNoSpeechDetected:
		return errorEnvelope(usecase.MessageNoSpeech, ErrorTypeNoSpeechDetected)
	case usecase.OutcomeInvalidInput:
		return errorEnvelope(out.Reason, ErrorTypeInvalidInput)
	default:
		return newEnvelope(EventError, ErrorData{
			Message: out.Message,
			Type:    out.ErrorType,
			Stage:   string(out.Stage),
		})
	}
}
