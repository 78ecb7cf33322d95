package openai

import (
	"context"
	"encoding/base64"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
)

var chatModelCanonical = map[string]string{
	"gpt-4o":       "gpt-4o",
	"gpt-4o-mini":  "gpt-4o-mini",
	"gpt-4.1":      "gpt-4.1",
	"gpt-4.1-mini": "gpt-4.1-mini",
}

var chatModelAliases = map[string]string{
	"gpt4o":                  "gpt-4o",
	"gpt-4-omni":             "gpt-4o",
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4.1":                 "gpt-4.1",
}

// normalizeChatModel maps loose model names onto a known id. The second
// return is "alias" or "defaulted" when the input was rewritten.
func normalizeChatModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultChatModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := chatModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := chatModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultChatModel, "defaulted"
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *Adapter) complete(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	model, reason := normalizeChatModel(req.Model)
	if reason != "" {
		a.opts.Logger.Warn().Str("requested", req.Model).Str("resolved", model).Str("reason", reason).Msg("openai: chat model normalized")
	}

	messages := make([]chatMessage, 0, 2)
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		messages = append(messages, chatMessage{Role: "system", Content: sys})
	}
	if req.Kind == domain.KindVision {
		if req.Attachment == nil || len(req.Attachment.Data) == 0 {
			return nil, domain.Invalid("vision request needs an image attachment")
		}
		dataURL := "data:" + req.Attachment.MIME + ";base64," + base64.StdEncoding.EncodeToString(req.Attachment.Data)
		messages = append(messages, chatMessage{Role: "user", Content: []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	}

	raw, err := providers.Do(ctx, a.opts.HTTPClient, providers.Call{
		Service: serviceName,
		URL:     a.opts.BaseURL + "/chat/completions",
		Header:  providers.BearerHeader(req.Credential.Value),
		Body:    chatRequest{Model: model, Messages: messages},
	})
	if err != nil {
		return nil, err
	}
	var decoded chatResponse
	if err := providers.DecodeJSON(serviceName, raw, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message == nil {
		return nil, providers.Malformed(serviceName, "response has no message", nil)
	}
	msg := decoded.Choices[0].Message
	if msg.Refusal != nil && strings.TrimSpace(*msg.Refusal) != "" {
		return nil, &providers.RejectionError{Service: serviceName, Status: 200, Message: *msg.Refusal, Policy: true}
	}
	if msg.Content == nil || strings.TrimSpace(*msg.Content) == "" {
		return nil, providers.Malformed(serviceName, "message content is empty", nil)
	}
	return domain.TextResult(serviceName+"/"+model, *msg.Content), nil
}
