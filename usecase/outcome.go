package usecase

import (
	"errors"

	"github.com/revgen/voicecmd/domain/entities"
)

// OutcomeKind classifies the result of processing one clip.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeNoSpeechDetected OutcomeKind = "no_speech_detected"
	OutcomeInvalidInput     OutcomeKind = "invalid_input"
	OutcomeUpstreamFailure  OutcomeKind = "upstream_failure"
)

// Stage names the step of the pipeline that produced an upstream failure.
type Stage string

const (
	StageFraming       Stage = "framing"
	StageTranscription Stage = "transcription"
	StageTranslation   Stage = "translation"
	StageReasoning     Stage = "reasoning"
)

const (
	ReasonMissingAudio  = "No audio file provided"
	ReasonInvalidFormat = "Invalid file format"
	MessageNoSpeech     = "No speech detected"
)

// Outcome is the single result every transport renders. Only the fields that
// belong to Kind are set.
type Outcome struct {
	Kind OutcomeKind

	// Success
	OriginalText   string
	TranslatedText string
	Resolution     *Resolution

	// InvalidInput
	Reason string

	// UpstreamFailure
	Stage     Stage
	Message   string
	ErrorType string
}

func success(original, translated string) Outcome {
	return Outcome{Kind: OutcomeSuccess, OriginalText: original, TranslatedText: translated}
}

func invalidInput(reason string) Outcome {
	return Outcome{Kind: OutcomeInvalidInput, Reason: reason}
}

func noSpeech() Outcome {
	return Outcome{Kind: OutcomeNoSpeechDetected}
}

// typedError is implemented by engine errors that name their own type.
type typedError interface {
	error
	ErrorType() string
}

func upstreamFailure(stage Stage, err error, fallbackType string) Outcome {
	out := Outcome{Kind: OutcomeUpstreamFailure, Stage: stage, Message: err.Error(), ErrorType: fallbackType}
	var typed typedError
	if errors.As(err, &typed) {
		out.ErrorType = typed.ErrorType()
	}
	return out
}

// ResolutionKind says whether the reasoning engine answered directly or ran tools.
type ResolutionKind string

const (
	ResolutionFinalAnswer  ResolutionKind = "final_answer"
	ResolutionActionResult ResolutionKind = "action_result"
)

// Resolution is what the command resolver concluded for one utterance.
type Resolution struct {
	Kind        ResolutionKind
	Text        string
	Invocations []entities.ActionInvocation
}

// ActionSummary is the client-facing view of one invocation.
type ActionSummary struct {
	Tool   string `json:"tool"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Actions summarizes the invocations in emission order.
func (r Resolution) Actions() []ActionSummary {
	out := make([]ActionSummary, 0, len(r.Invocations))
	for _, inv := range r.Invocations {
		s := ActionSummary{Tool: inv.ToolName}
		switch {
		case inv.Err != nil:
			s.Status = "error"
			s.Error = inv.Err.Error()
		default:
			s.Status = string(inv.Result.Kind)
			s.Result = inv.Result.Value
			s.Error = inv.Result.Message
		}
		out = append(out, s)
	}
	return out
}

// Failures returns the invocations that did not succeed.
func (r Resolution) Failures() []entities.ActionInvocation {
	var failed []entities.ActionInvocation
	for _, inv := range r.Invocations {
		if inv.Failed() {
			failed = append(failed, inv)
		}
	}
	return failed
}
