// Package handlers exposes the generation pipeline over JSON HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"filmgen/internal/infra"
	"filmgen/internal/pipeline"
)

// Generator is the part of the pipeline the handlers drive.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Outcome, error)
	BreakdownShots(ctx context.Context, req pipeline.BreakdownRequest) (pipeline.Breakdown, error)
}

type App struct {
	Pipeline Generator
	Logger   *infra.Logger
	// MaxBodyBytes caps request bodies; attachments travel inline.
	MaxBodyBytes int64
	// ReadyCheck backs /v1/readyz, typically a database ping.
	ReadyCheck func(ctx context.Context) error
}

const defaultMaxBodyBytes = 20 << 20

func NewApp(gen Generator, logger *infra.Logger) *App {
	return &App{Pipeline: gen, Logger: infra.OrNop(logger), MaxBodyBytes: defaultMaxBodyBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := a.readJSON(w, r, dst); err != nil {
		a.json(w, http.StatusBadRequest, errorBody{Success: false, Error: msgInvalidJSON})
		return false
	}
	return true
}

const msgInvalidJSON = "invalid JSON payload"

func (a *App) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(dst)
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// fail converts a pipeline error into the caller-facing response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := a.failure(r, err)
	a.json(w, status, errorBody{Success: false, Error: msg})
}

// failure picks the status and safe message for err, logging server faults.
func (a *App) failure(r *http.Request, err error) (int, string) {
	status := pipeline.StatusFor(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("handlers: request failed")
	}
	return status, pipeline.UserMessage(err)
}
