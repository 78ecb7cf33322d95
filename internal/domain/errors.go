package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrCredentialMissing       = errors.New("credential missing")
	ErrProviderRejected        = errors.New("provider rejected request")
	ErrMalformedResponse       = errors.New("malformed provider response")
	ErrTimeout                 = errors.New("timeout")
	ErrProviderReportedFailure = errors.New("provider reported failure")
	ErrParseFailure            = errors.New("parse failure")
	ErrStorageFailure          = errors.New("storage failure")
)

// ErrorKind is the transport-neutral classification of a pipeline failure.
type ErrorKind string

const (
	ErrorKindNone                    ErrorKind = ""
	ErrorKindInvalidRequest          ErrorKind = "invalid_request"
	ErrorKindCredentialMissing       ErrorKind = "credential_missing"
	ErrorKindProviderRejected        ErrorKind = "provider_rejected"
	ErrorKindMalformedResponse       ErrorKind = "malformed_response"
	ErrorKindTimeout                 ErrorKind = "timeout"
	ErrorKindProviderReportedFailure ErrorKind = "provider_reported_failure"
	ErrorKindParseFailure            ErrorKind = "parse_failure"
	ErrorKindStorageFailure          ErrorKind = "storage_failure"
	ErrorKindInternal                ErrorKind = "internal"
)

// Fatal reports whether a failure of this kind must abort the request.
func (k ErrorKind) Fatal() bool {
	return k != ErrorKindNone && k != ErrorKindStorageFailure
}

var kindMarkers = []struct {
	marker error
	kind   ErrorKind
}{
	{ErrInvalidRequest, ErrorKindInvalidRequest},
	{ErrCredentialMissing, ErrorKindCredentialMissing},
	{ErrProviderRejected, ErrorKindProviderRejected},
	{ErrMalformedResponse, ErrorKindMalformedResponse},
	{ErrTimeout, ErrorKindTimeout},
	{ErrProviderReportedFailure, ErrorKindProviderReportedFailure},
	{ErrParseFailure, ErrorKindParseFailure},
	{ErrStorageFailure, ErrorKindStorageFailure},
}

// KindOf classifies err by the first sentinel marker it wraps.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return ErrorKindInternal
}

// Wrap tags err with marker and prefixes it with the component and operation
// that failed, so callers can classify with errors.Is and still read a useful
// message.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProviderRejected
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Invalid builds an ErrInvalidRequest with the given reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{component, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
