// Package bfl adapts the Black Forest Labs FLUX API. Every request is
// asynchronous: submission returns a job id and a polling URL.
package bfl

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

const serviceName = infra.ServiceBFL

const DefaultModel = "flux-pro-1.1"

type submitRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type submitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type Adapter struct {
	opts providers.Options
}

func New(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Resolve("https://api.bfl.ai")}
}

func (a *Adapter) Service() string      { return serviceName }
func (a *Adapter) Kinds() []domain.Kind { return []domain.Kind{domain.KindImage} }

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	if req.Kind != domain.KindImage {
		return providers.Submission{}, domain.Invalid("bfl does not support %s requests", req.Kind)
	}
	if strings.TrimSpace(req.Credential.Value) == "" {
		return providers.Submission{}, domain.Wrap(domain.ErrCredentialMissing, serviceName, "submit", "api key is required", nil)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}
	size := clampSize(req.Size())
	header := http.Header{"X-Key": []string{req.Credential.Value}}
	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     a.opts.BaseURL + "/v1/" + url.PathEscape(model),
		Header:  header,
		Body:    submitRequest{Prompt: req.Prompt, Width: size.Width, Height: size.Height},
	})
	if err != nil {
		return providers.Submission{}, err
	}
	var decoded submitResponse
	if err := providers.DecodeJSON(serviceName, raw, &decoded); err != nil {
		return providers.Submission{}, err
	}
	id := strings.TrimSpace(decoded.ID)
	if id == "" {
		return providers.Submission{}, providers.Malformed(serviceName, "submission has no id", nil)
	}

	endpoints := make([]string, 0, 2)
	if p := strings.TrimSpace(decoded.PollingURL); p != "" {
		endpoints = append(endpoints, p)
	}
	endpoints = append(endpoints, a.opts.BaseURL+"/v1/get_result?id={id}")
	job := domain.NewPollableJob(serviceName, id, endpoints, header)
	job.Label = serviceName + "/" + model
	return providers.Deferred(job), nil
}

// clampSize keeps dimensions inside the range FLUX accepts, rounded down to
// a multiple of 32.
func clampSize(d domain.Dimensions) domain.Dimensions {
	fit := func(v int) int {
		if v < 256 {
			v = 256
		}
		if v > 1440 {
			v = 1440
		}
		return v - v%32
	}
	return domain.Dimensions{Width: fit(d.Width), Height: fit(d.Height)}
}

var _ providers.Adapter = (*Adapter)(nil)
