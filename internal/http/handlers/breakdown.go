package handlers

import (
	"net/http"

	"filmgen/internal/domain"
	"filmgen/internal/pipeline"
)

type breakdownRequest struct {
	Scene      string `json:"scene"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Credential string `json:"credential"`
	CallerID   string `json:"callerId"`
	MaxShots   int    `json:"maxShots"`
}

type breakdownResponse struct {
	Success  bool                `json:"success"`
	Shots    []domain.ShotRecord `json:"shots"`
	Strategy string              `json:"strategy,omitempty"`
	Provider string              `json:"provider,omitempty"`
}

func (a *App) Breakdown(w http.ResponseWriter, r *http.Request) {
	var req breakdownRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.MaxShots < 0 || req.MaxShots > 200 {
		a.fail(w, r, domain.Invalid("maxShots must be between 0 and 200"))
		return
	}
	res, err := a.Pipeline.BreakdownShots(r.Context(), pipeline.BreakdownRequest{
		Scene:      req.Scene,
		Provider:   req.Provider,
		Model:      req.Model,
		Credential: req.Credential,
		CallerID:   req.CallerID,
		MaxShots:   req.MaxShots,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, breakdownResponse{
		Success:  true,
		Shots:    res.Shots,
		Strategy: string(res.Strategy),
		Provider: res.ProviderLabel,
	})
}
