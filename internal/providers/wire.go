package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/cases"

	"filmgen/internal/domain"
)

// RejectionError is a non-2xx answer from a provider.
type RejectionError struct {
	Service string
	Status  int
	Message string
	// Policy is set when the message reads like a content-policy refusal.
	Policy bool
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
}

func (e *RejectionError) Unwrap() error { return domain.ErrProviderRejected }

var policyKeywords = []string{
	"policy", "safety", "explicit", "moderation", "nsfw", "violat", "prohibited", "not allowed",
}

// IsPolicyViolation reports whether a provider message indicates a
// content-policy refusal.
func IsPolicyViolation(message string) bool {
	folded := cases.Fold().String(message)
	for _, kw := range policyKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// Call is one JSON request to a provider.
type Call struct {
	Service string
	Method  string
	URL     string
	Header  http.Header
	Body    any
}

// Do sends the call and returns the raw body of a 2xx response. Non-2xx
// responses become a *RejectionError.
func Do(ctx context.Context, client *http.Client, call Call) ([]byte, error) {
	var body io.Reader
	if call.Body != nil {
		encoded, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", call.Service, err)
		}
		body = bytes.NewReader(encoded)
	}
	method := call.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, call.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", call.Service, err)
	}
	for k, vs := range call.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Wrap(domain.ErrTimeout, call.Service, "http request", "", err)
		}
		return nil, domain.Wrap(domain.ErrProviderRejected, call.Service, "http request", "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.ErrMalformedResponse, call.Service, "read response", "", err)
	}
	if resp.StatusCode >= 300 {
		return nil, Rejection(call.Service, resp.StatusCode, raw)
	}
	return raw, nil
}

// Rejection builds a RejectionError from an error body, pulling the message
// out of the common error envelopes.
func Rejection(service string, status int, raw []byte) *RejectionError {
	msg := errorMessage(raw)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RejectionError{Service: service, Status: status, Message: msg, Policy: IsPolicyViolation(msg)}
}

func errorMessage(raw []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
		Code    string          `json:"code"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return truncate(strings.TrimSpace(string(raw)), 300)
	}
	if msg := rawMessage(envelope.Error); msg != "" {
		return msg
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if msg := rawMessage(envelope.Detail); msg != "" {
		return msg
	}
	return envelope.Code
}

// rawMessage handles both {"error":"text"} and {"error":{"message":"text"}}.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return strings.TrimSpace(obj.Message)
		}
		return obj.Type
	}
	return ""
}

// DecodeJSON unmarshals a 2xx body; failures are MalformedResponse with a
// snippet of the payload.
func DecodeJSON(service string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return Malformed(service, fmt.Sprintf("decode response (payload: %s)", truncate(string(raw), 200)), err)
	}
	return nil
}

// Malformed tags a response-shape problem.
func Malformed(service, message string, err error) error {
	return domain.Wrap(domain.ErrMalformedResponse, service, "parse response", message, err)
}

// BearerHeader is the usual Authorization header.
func BearerHeader(key string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + key}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
