// Package openart adapts the OpenArt image generation API. Depending on the
// model the API answers with a hosted URL, base64 data or a job id.
package openart

import (
	"context"
	"encoding/json"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

const serviceName = infra.ServiceOpenArt

const DefaultModel = "sdxl"

// jobEndpoints are tried in order on each poll tick.
var jobEndpoints = []string{
	"/v1/jobs/{id}",
	"/v1/generations/{id}",
	"/v1/tasks/{id}",
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type generateResponse struct {
	URL   string `json:"url"`
	Image string `json:"image"`
	B64   string `json:"b64_json"`
	// Images items are either bare URLs or {"url": ...} objects.
	Images []json.RawMessage `json:"images"`
	ID     string            `json:"id"`
	JobID  string            `json:"job_id"`
	TaskID string            `json:"task_id"`
}

type Adapter struct {
	opts providers.Options
}

func New(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Resolve("https://openart.ai/api")}
}

func (a *Adapter) Service() string      { return serviceName }
func (a *Adapter) Kinds() []domain.Kind { return []domain.Kind{domain.KindImage} }

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	if req.Kind != domain.KindImage {
		return providers.Submission{}, domain.Invalid("openart does not support %s requests", req.Kind)
	}
	if strings.TrimSpace(req.Credential.Value) == "" {
		return providers.Submission{}, domain.Wrap(domain.ErrCredentialMissing, serviceName, "submit", "api key is required", nil)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}
	size := req.Size()
	header := providers.BearerHeader(req.Credential.Value)
	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     a.opts.BaseURL + "/v1/generations",
		Header:  header,
		Body:    generateRequest{Prompt: req.Prompt, Model: model, Width: size.Width, Height: size.Height},
	})
	if err != nil {
		return providers.Submission{}, err
	}
	var decoded generateResponse
	if err := providers.DecodeJSON(serviceName, raw, &decoded); err != nil {
		return providers.Submission{}, err
	}

	label := serviceName + "/" + model
	if u := firstNonEmpty(decoded.URL, firstImageURL(decoded)); u != "" {
		return providers.Immediate(domain.MediaResult(label, domain.RemoteURL(u))), nil
	}
	if b64 := firstNonEmpty(decoded.B64, decoded.Image); b64 != "" {
		return providers.Immediate(domain.MediaResult(label, domain.InlineBytes("image/png", b64))), nil
	}
	id := firstNonEmpty(decoded.ID, decoded.JobID, decoded.TaskID)
	if id == "" {
		return providers.Submission{}, providers.Malformed(serviceName, "response has no media and no job id", nil)
	}

	endpoints := make([]string, 0, len(jobEndpoints))
	for _, e := range jobEndpoints {
		endpoints = append(endpoints, a.opts.BaseURL+e)
	}
	job := domain.NewPollableJob(serviceName, id, endpoints, header)
	job.Label = label
	a.opts.Logger.Info().Str("service", serviceName).Str("job_id", id).Msg("openart: job queued")
	return providers.Deferred(job), nil
}

func firstImageURL(r generateResponse) string {
	for _, item := range r.Images {
		var bare string
		if err := json.Unmarshal(item, &bare); err == nil {
			if u := strings.TrimSpace(bare); u != "" {
				return u
			}
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			if u := strings.TrimSpace(obj.URL); u != "" {
				return u
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ providers.Adapter = (*Adapter)(nil)
