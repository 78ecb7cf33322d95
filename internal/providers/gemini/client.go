// Package gemini adapts Google's generateContent API for image, vision and
// text requests.
package gemini

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

const serviceName = infra.ServiceGemini

const (
	ModelFlash      = "gemini-2.5-flash"
	ModelFlashImage = "gemini-2.5-flash-image"
)

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type generationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Adapter calls models/{model}:generateContent with the key in the query
// string.
type Adapter struct {
	opts providers.Options
}

func New(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Resolve("https://generativelanguage.googleapis.com/v1beta")}
}

func (a *Adapter) Service() string { return serviceName }

func (a *Adapter) Kinds() []domain.Kind {
	return []domain.Kind{domain.KindImage, domain.KindVision, domain.KindText}
}

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	if strings.TrimSpace(req.Credential.Value) == "" {
		return providers.Submission{}, domain.Wrap(domain.ErrCredentialMissing, serviceName, "submit", "api key is required", nil)
	}
	model := strings.TrimSpace(req.Model)
	payload := generateContentRequest{}
	user := content{Role: "user", Parts: []part{{Text: req.Prompt}}}

	switch req.Kind {
	case domain.KindImage:
		if model == "" {
			model = ModelFlashImage
		}
		payload.GenerationConfig = &generationConfig{CandidateCount: 1, ResponseModalities: []string{"IMAGE", "TEXT"}}
	case domain.KindVision:
		if req.Attachment == nil || len(req.Attachment.Data) == 0 {
			return providers.Submission{}, domain.Invalid("vision request needs an image attachment")
		}
		user.Parts = append(user.Parts, part{InlineData: &inlineData{
			MimeType: req.Attachment.MIME,
			Data:     base64.StdEncoding.EncodeToString(req.Attachment.Data),
		}})
	case domain.KindText:
	default:
		return providers.Submission{}, domain.Invalid("gemini does not support %s requests", req.Kind)
	}
	if model == "" {
		model = ModelFlash
	}
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: sys}}}
	}
	payload.Contents = []content{user}

	var decoded generateContentResponse
	if err := a.invoke(ctx, model, req.Credential.Value, payload, &decoded); err != nil {
		return providers.Submission{}, err
	}
	label := serviceName + "/" + model
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return providers.Submission{}, &providers.RejectionError{
			Service: serviceName,
			Status:  200,
			Message: "prompt blocked: " + decoded.PromptFeedback.BlockReason,
			Policy:  true,
		}
	}
	parts, err := candidateParts(decoded)
	if err != nil {
		return providers.Submission{}, err
	}

	if req.Kind == domain.KindImage {
		for _, p := range parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return providers.Immediate(domain.MediaResult(label, domain.InlineBytes(p.InlineData.MimeType, p.InlineData.Data))), nil
			}
			if p.FileData != nil && p.FileData.FileURI != "" {
				return providers.Immediate(domain.MediaResult(label, domain.RemoteURL(p.FileData.FileURI))), nil
			}
		}
		return providers.Submission{}, providers.Malformed(serviceName, "no image part in candidate", nil)
	}

	var text strings.Builder
	for _, p := range parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return providers.Submission{}, providers.Malformed(serviceName, "candidate has no text", nil)
	}
	return providers.Immediate(domain.TextResult(label, text.String())), nil
}

func candidateParts(resp generateContentResponse) ([]part, error) {
	if len(resp.Candidates) == 0 {
		return nil, providers.Malformed(serviceName, "response has no candidates", nil)
	}
	c := resp.Candidates[0]
	if c.FinishReason == "SAFETY" || c.FinishReason == "PROHIBITED_CONTENT" {
		return nil, &providers.RejectionError{Service: serviceName, Status: 200, Message: "finish reason " + c.FinishReason, Policy: true}
	}
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return nil, providers.Malformed(serviceName, "candidate has no content parts", nil)
	}
	return c.Content.Parts, nil
}

func (a *Adapter) invoke(ctx context.Context, model, key string, payload any, out any) error {
	// The key travels as a header so transport errors, which quote the URL,
	// never carry it.
	endpoint := a.opts.BaseURL + "/models/" + url.PathEscape(model) + ":generateContent"
	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     endpoint,
		Header:  http.Header{"X-Goog-Api-Key": []string{key}},
		Body:    payload,
	})
	if err != nil {
		return err
	}
	a.opts.Logger.Debug().Str("service", serviceName).Str("model", model).Int("bytes", len(raw)).Msg("gemini: response received")
	return providers.DecodeJSON(serviceName, raw, out)
}

var _ providers.Adapter = (*Adapter)(nil)
