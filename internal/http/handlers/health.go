package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health answers as long as the process serves requests.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready also runs ReadyCheck when one is configured.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	if a.ReadyCheck == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: readiness check failed")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ready"})
}
