package handlers

import (
	"net/http"

	"filmgen/internal/domain"
	"filmgen/internal/pipeline"
)

type generateRequest struct {
	Prompt           string             `json:"prompt"`
	Provider         string             `json:"provider"`
	Model            string             `json:"model"`
	Credential       string             `json:"credential"`
	CallerID         string             `json:"callerId"`
	PersistRequested *bool              `json:"persistRequested"`
	Dimensions       *domain.Dimensions `json:"dimensions"`
}

// generateResponse always carries success, media, originalMedia and error;
// absent values are null.
type generateResponse struct {
	Success       bool    `json:"success"`
	Media         *string `json:"media"`
	OriginalMedia *string `json:"originalMedia"`
	Error         *string `json:"error"`
	Provider      string  `json:"provider,omitempty"`
	Persisted     bool    `json:"persisted"`
	Warning       string  `json:"warning,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *App) generateFailed(w http.ResponseWriter, status int, msg string) {
	a.json(w, status, generateResponse{Success: false, Error: &msg})
}

const storageWarning = "The result could not be saved to storage; the provider link is returned instead and may expire."

func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.KindImage)
}

func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.KindVideo)
}

func (a *App) generate(w http.ResponseWriter, r *http.Request, kind domain.Kind) {
	var req generateRequest
	if err := a.readJSON(w, r, &req); err != nil {
		a.generateFailed(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	out, err := a.Pipeline.Generate(r.Context(), pipeline.Request{
		Kind:             kind,
		Prompt:           req.Prompt,
		Provider:         req.Provider,
		Model:            req.Model,
		Credential:       req.Credential,
		CallerID:         req.CallerID,
		PersistRequested: req.PersistRequested,
		Dimensions:       req.Dimensions,
	})
	if err != nil {
		status, msg := a.failure(r, err)
		a.generateFailed(w, status, msg)
		return
	}
	resp := generateResponse{
		Success:       true,
		Media:         optional(out.Media),
		OriginalMedia: optional(out.OriginalMedia),
		Provider:      out.Result.ProviderLabel,
		Persisted:     out.Persisted,
	}
	if out.StorageErr != nil {
		a.Logger.Warn().Err(out.StorageErr).Str("provider", resp.Provider).Msg("handlers: returning provider reference")
		resp.Warning = storageWarning
	}
	a.json(w, http.StatusOK, resp)
}
