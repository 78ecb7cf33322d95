package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/pipeline"
)

const defaultAnalyzePrompt = "Describe this image for a film production team: subjects, setting, lighting, composition and mood."

type analyzeRequest struct {
	Prompt     string `json:"prompt"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Credential string `json:"credential"`
	CallerID   string `json:"callerId"`
	// Image is raw base64 or a data: URL.
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

type textResponse struct {
	Success  bool   `json:"success"`
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
}

func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !a.decode(w, r, &req) {
		return
	}
	attachment, err := parseAttachment(req.Image, req.MimeType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultAnalyzePrompt
	}
	out, err := a.Pipeline.Generate(r.Context(), pipeline.Request{
		Kind:       domain.KindVision,
		Prompt:     prompt,
		Provider:   req.Provider,
		Model:      req.Model,
		Credential: req.Credential,
		CallerID:   req.CallerID,
		Attachment: attachment,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, textResponse{Success: true, Text: out.Result.Text, Provider: out.Result.ProviderLabel})
}

// parseAttachment accepts "data:<mime>;base64,<payload>" or bare base64.
// The mime falls back to sniffing the decoded bytes.
func parseAttachment(image, mimeType string) (*domain.Attachment, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, domain.Invalid("image is required")
	}
	if rest, ok := strings.CutPrefix(image, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, domain.Invalid("image data URL must be base64 encoded")
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
		image = payload
	}
	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, domain.Invalid("image is not valid base64")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, domain.Invalid("attachment must be an image, got %s", mimeType)
	}
	return &domain.Attachment{MIME: mimeType, Data: data}, nil
}
