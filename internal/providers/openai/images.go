package openai

import (
	"context"
	"fmt"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
)

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	Quality        string `json:"quality,omitempty"`
}

type imageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// imageFamily reports whether a model answers with hosted URLs (dall-e) or
// inline base64 (gpt-image).
func imageFamily(model string) domain.MediaFamily {
	if strings.HasPrefix(model, "gpt-image") {
		return domain.MediaInlineBytes
	}
	return domain.MediaRemoteURL
}

func (a *Adapter) generateImage(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = ModelDalle3
	}
	payload := imageRequest{
		Model:  model,
		Prompt: req.Prompt,
		N:      1,
		Size:   imageSize(model, req.Size()),
	}
	if imageFamily(model) == domain.MediaRemoteURL {
		payload.ResponseFormat = "url"
	}

	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     a.opts.BaseURL + "/images/generations",
		Header:  providers.BearerHeader(req.Credential.Value),
		Body:    payload,
	})
	if err != nil {
		return nil, err
	}
	var decoded imageResponse
	if err := providers.DecodeJSON(serviceName, raw, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Data) == 0 {
		return nil, providers.Malformed(serviceName, "response has no data entries", nil)
	}
	item := decoded.Data[0]
	label := fmt.Sprintf("%s/%s", serviceName, model)
	var loc domain.MediaLocator
	switch {
	case strings.TrimSpace(item.URL) != "":
		loc = domain.RemoteURL(item.URL)
	case strings.TrimSpace(item.B64JSON) != "":
		loc = domain.InlineBytes("image/png", item.B64JSON)
	default:
		return nil, providers.Malformed(serviceName, "data entry has neither url nor b64_json", nil)
	}
	a.opts.Logger.Debug().
		Str("service", serviceName).
		Str("model", model).
		Str("family", loc.Family().String()).
		Msg("openai: image generated")
	return domain.MediaResult(label, loc), nil
}

// imageSize picks the closest supported size for the requested aspect.
func imageSize(model string, d domain.Dimensions) string {
	landscape := d.Width > d.Height
	portrait := d.Height > d.Width
	if imageFamily(model) == domain.MediaInlineBytes {
		switch {
		case landscape:
			return "1536x1024"
		case portrait:
			return "1024x1536"
		default:
			return "1024x1024"
		}
	}
	switch {
	case landscape:
		return "1792x1024"
	case portrait:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}
