// Package runway adapts Runway's video generation API.
package runway

import (
	"context"
	"encoding/base64"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

const serviceName = infra.ServiceRunway

const (
	DefaultModel = "gen4_turbo"
	apiVersion   = "2024-11-06"
)

type taskRequest struct {
	Model       string `json:"model"`
	PromptText  string `json:"promptText"`
	PromptImage string `json:"promptImage,omitempty"`
	Ratio       string `json:"ratio"`
	Duration    int    `json:"duration"`
}

type taskResponse struct {
	ID string `json:"id"`
}

type Adapter struct {
	opts providers.Options
}

func New(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Resolve("https://api.dev.runwayml.com")}
}

func (a *Adapter) Service() string      { return serviceName }
func (a *Adapter) Kinds() []domain.Kind { return []domain.Kind{domain.KindVideo} }

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	if req.Kind != domain.KindVideo {
		return providers.Submission{}, domain.Invalid("runway does not support %s requests", req.Kind)
	}
	if strings.TrimSpace(req.Credential.Value) == "" {
		return providers.Submission{}, domain.Wrap(domain.ErrCredentialMissing, serviceName, "submit", "api key is required", nil)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}
	body := taskRequest{
		Model:      model,
		PromptText: req.Prompt,
		Ratio:      ratio(req.Size()),
		Duration:   5,
	}
	path := "/v1/text_to_video"
	if req.Attachment != nil && len(req.Attachment.Data) > 0 {
		path = "/v1/image_to_video"
		body.PromptImage = "data:" + req.Attachment.MIME + ";base64," + base64.StdEncoding.EncodeToString(req.Attachment.Data)
	}

	header := providers.BearerHeader(req.Credential.Value)
	header.Set("X-Runway-Version", apiVersion)
	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     a.opts.BaseURL + path,
		Header:  header,
		Body:    body,
	})
	if err != nil {
		return providers.Submission{}, err
	}
	var decoded taskResponse
	if err := providers.DecodeJSON(serviceName, raw, &decoded); err != nil {
		return providers.Submission{}, err
	}
	if strings.TrimSpace(decoded.ID) == "" {
		return providers.Submission{}, providers.Malformed(serviceName, "task has no id", nil)
	}
	job := domain.NewPollableJob(serviceName, decoded.ID, []string{a.opts.BaseURL + "/v1/tasks/{id}"}, header.Clone())
	job.Label = serviceName + "/" + model
	return providers.Deferred(job), nil
}

// ratio maps dimensions onto the fixed set Runway accepts.
func ratio(d domain.Dimensions) string {
	switch {
	case d.Width > d.Height:
		return "1280:720"
	case d.Height > d.Width:
		return "720:1280"
	default:
		return "960:960"
	}
}

var _ providers.Adapter = (*Adapter)(nil)
