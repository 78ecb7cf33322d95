// Package providers holds the contract shared by every generative service
// adapter and the HTTP helpers they use to talk to their APIs.
package providers

import (
	"context"
	"net/http"
	"time"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
)

// Adapter translates provider-neutral requests into one service's wire
// format.
type Adapter interface {
	// Service is the canonical service id, e.g. "openai".
	Service() string
	// Kinds lists the request kinds the adapter can serve.
	Kinds() []domain.Kind
	Submit(ctx context.Context, req domain.GenerationRequest) (Submission, error)
}

// Submission is either a terminal result or a job that still has to be
// polled. Exactly one field is set.
type Submission struct {
	Result *domain.GenerationResult
	Job    *domain.PollableJob
}

func Immediate(res *domain.GenerationResult) Submission { return Submission{Result: res} }
func Deferred(job *domain.PollableJob) Submission       { return Submission{Job: job} }

// Pending reports whether the submission must go through the poller.
func (s Submission) Pending() bool { return s.Job != nil }

// Options is shared by every adapter constructor.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Timeout    time.Duration
}

// Resolve fills defaults in place and returns the normalized options.
func (o Options) Resolve(defaultBaseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	o.BaseURL = trimSlash(o.BaseURL)
	if o.HTTPClient == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		o.HTTPClient = &http.Client{Timeout: timeout}
	}
	o.Logger = infra.OrNop(o.Logger)
	return o
}

// Supports reports whether a lists kind.
func Supports(a Adapter, kind domain.Kind) bool {
	for _, k := range a.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
