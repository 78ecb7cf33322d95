package pipeline

import (
	"errors"
	"net/http"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
)

const (
	MessagePolicy    = "The provider rejected this prompt under its content policy. Please revise the prompt and try again."
	MessageRejected  = "The provider could not complete the request. Please try again later."
	MessageMalformed = "The provider returned an unexpected response. Please try again later."
	MessageTimeout   = "The provider did not finish the job in time. Please try again later."
	MessageFailed    = "The provider reported that the generation failed. Please try again."
	MessageInternal  = "Something went wrong while generating. Please try again later."
)

// StatusFor maps a pipeline error onto an HTTP status: 400 for caller
// mistakes and missing credentials, 500 otherwise.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrorKindNone:
		return http.StatusOK
	case domain.ErrorKindInvalidRequest, domain.ErrorKindCredentialMissing:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage turns err into text that is safe to show a caller. Provider
// messages are only passed through as the fixed policy notice.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch domain.KindOf(err) {
	case domain.ErrorKindInvalidRequest, domain.ErrorKindCredentialMissing, domain.ErrorKindParseFailure:
		return err.Error()
	case domain.ErrorKindProviderRejected:
		var rej *providers.RejectionError
		if errors.As(err, &rej) && rej.Policy {
			return MessagePolicy
		}
		return MessageRejected
	case domain.ErrorKindProviderReportedFailure:
		if providers.IsPolicyViolation(err.Error()) {
			return MessagePolicy
		}
		return MessageFailed
	case domain.ErrorKindMalformedResponse:
		return MessageMalformed
	case domain.ErrorKindTimeout:
		return MessageTimeout
	default:
		return MessageInternal
	}
}
