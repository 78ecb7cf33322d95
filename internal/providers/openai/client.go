// Package openai adapts the OpenAI image, chat and vision endpoints.
package openai

import (
	"context"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

const serviceName = infra.ServiceOpenAI

const (
	ModelDalle3      = "dall-e-3"
	ModelGPTImage1   = "gpt-image-1"
	defaultChatModel = "gpt-4o-mini"
)

// Adapter talks to api.openai.com.
type Adapter struct {
	opts providers.Options
}

func New(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Resolve("https://api.openai.com/v1")}
}

func (a *Adapter) Service() string { return serviceName }

func (a *Adapter) Kinds() []domain.Kind {
	return []domain.Kind{domain.KindImage, domain.KindVision, domain.KindText}
}

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	if strings.TrimSpace(req.Credential.Value) == "" {
		return providers.Submission{}, domain.Wrap(domain.ErrCredentialMissing, serviceName, "submit", "api key is required", nil)
	}
	switch req.Kind {
	case domain.KindImage:
		res, err := a.generateImage(ctx, req)
		return providers.Immediate(res), err
	case domain.KindText, domain.KindVision:
		res, err := a.complete(ctx, req)
		return providers.Immediate(res), err
	default:
		return providers.Submission{}, domain.Invalid("openai does not support %s requests", req.Kind)
	}
}

var _ providers.Adapter = (*Adapter)(nil)
