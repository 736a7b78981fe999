package api

import (
	"net/http"

	"github.com/revgen/voicecmd/usecase"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Timestamp string `json:"timestamp" example:"2024-05-01T10:00:00Z"`
	Service   string `json:"service" example:"voicecmd"`
}

// ProcessResponse is returned by POST /process on success
type ProcessResponse struct {
	OriginalText   string                  `json:"original_text" example:"ടിവി ഓൺ ചെയ്യൂ"`
	TranslatedText string                  `json:"translated_text" example:"turn on the tv"`
	Answer         string                  `json:"answer,omitempty" example:"The TV is on."`
	Actions        []usecase.ActionSummary `json:"actions,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// renderOutcome maps an Outcome to the HTTP status and body the client sees.
func renderOutcome(out usecase.Outcome) (int, interface{}) {
	switch out.Kind {
	case usecase.OutcomeSuccess:
		resp := ProcessResponse{
			OriginalText:   out.OriginalText,
			TranslatedText: out.TranslatedText,
		}
		if out.Resolution != nil {
			resp.Answer = out.Resolution.Text
			resp.Actions = out.Resolution.Actions()
		}
		return http.StatusOK, resp
	case usecase.OutcomeNoSpeechDetected:
		return http.StatusBadRequest, ErrorResponse{Error: usecase.MessageNoSpeech}
	case usecase.OutcomeInvalidInput:
		return http.StatusBadRequest, ErrorResponse{Error: out.Reason}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: out.Message,
			Type:  out.ErrorType,
			Stage: string(out.Stage),
		}
	}
}
