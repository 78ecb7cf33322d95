// Package anthropic adapts the Claude messages API for text and vision
// requests.
package anthropic

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

const serviceName = infra.ServiceAnthropic

const (
	DefaultModel = "claude-3-5-sonnet-latest"
	apiVersion   = "2023-06-01"
	maxTokens    = 4096
)

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type block struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type Adapter struct {
	opts providers.Options
}

func New(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Resolve("https://api.anthropic.com/v1")}
}

func (a *Adapter) Service() string { return serviceName }

func (a *Adapter) Kinds() []domain.Kind {
	return []domain.Kind{domain.KindText, domain.KindVision}
}

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	if req.Kind != domain.KindText && req.Kind != domain.KindVision {
		return providers.Submission{}, domain.Invalid("anthropic does not support %s requests", req.Kind)
	}
	if strings.TrimSpace(req.Credential.Value) == "" {
		return providers.Submission{}, domain.Wrap(domain.ErrCredentialMissing, serviceName, "submit", "api key is required", nil)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	blocks := []block{}
	if req.Kind == domain.KindVision {
		if req.Attachment == nil || len(req.Attachment.Data) == 0 {
			return providers.Submission{}, domain.Invalid("vision request needs an image attachment")
		}
		blocks = append(blocks, block{Type: "image", Source: &imageSource{
			Type:      "base64",
			MediaType: req.Attachment.MIME,
			Data:      base64.StdEncoding.EncodeToString(req.Attachment.Data),
		}})
	}
	blocks = append(blocks, block{Type: "text", Text: req.Prompt})

	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     a.opts.BaseURL + "/messages",
		Header: http.Header{
			"X-Api-Key":         []string{req.Credential.Value},
			"Anthropic-Version": []string{apiVersion},
		},
		Body: messagesRequest{
			Model:     model,
			MaxTokens: maxTokens,
			System:    strings.TrimSpace(req.SystemPrompt),
			Messages:  []message{{Role: "user", Content: blocks}},
		},
	})
	if err != nil {
		return providers.Submission{}, err
	}
	var decoded messagesResponse
	if err := providers.DecodeJSON(serviceName, raw, &decoded); err != nil {
		return providers.Submission{}, err
	}
	if decoded.StopReason == "refusal" {
		return providers.Submission{}, &providers.RejectionError{Service: serviceName, Status: 200, Message: "model refused under its usage policy", Policy: true}
	}
	var text strings.Builder
	for _, c := range decoded.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return providers.Submission{}, providers.Malformed(serviceName, "response has no text content", nil)
	}
	return providers.Immediate(domain.TextResult(serviceName+"/"+model, text.String())), nil
}

var _ providers.Adapter = (*Adapter)(nil)
