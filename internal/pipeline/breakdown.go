package pipeline

import (
	"context"
	"fmt"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/recovery"
)

// BreakdownRequest asks a text model to split a scene into shots.
type BreakdownRequest struct {
	Scene      string
	Provider   string
	Model      string
	Credential string
	CallerID   string
	// MaxShots caps the number of shots requested from the model; 0 lets
	// the model decide.
	MaxShots int
}

type Breakdown struct {
	Shots         []domain.ShotRecord
	Strategy      recovery.Strategy
	ProviderLabel string
}

// BreakdownShots generates a shot list for a scene and normalizes it.
func (s *Service) BreakdownShots(ctx context.Context, req BreakdownRequest) (Breakdown, error) {
	out, err := s.Generate(ctx, Request{
		Kind:         domain.KindText,
		Prompt:       req.Scene,
		Provider:     req.Provider,
		Model:        req.Model,
		Credential:   req.Credential,
		CallerID:     req.CallerID,
		SystemPrompt: breakdownSystemPrompt(req.MaxShots),
	})
	if err != nil {
		return Breakdown{}, err
	}
	shots, strategy, err := recovery.ParseShots(out.Result.Text)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider_label", out.Result.ProviderLabel).Msg("pipeline: shot list could not be recovered")
		return Breakdown{}, err
	}
	s.metrics.RecordRecovery(string(strategy))
	if strategy != recovery.StrategyDirect {
		s.logger.Info().Str("strategy", string(strategy)).Int("shots", len(shots)).Msg("pipeline: shot list repaired")
	}
	return Breakdown{Shots: shots, Strategy: strategy, ProviderLabel: out.Result.ProviderLabel}, nil
}

func breakdownSystemPrompt(maxShots int) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a film director's assistant breaking a scene into a shot list. Respond strictly with a JSON array, no prose, matching: ")
	sb.WriteString(`[{"shot_type":string,"camera_angle":string,"movement":string,"description":string,"action":string,"dialogue":string,"characters":string[],"duration_seconds":number}]`)
	fmt.Fprintf(sb, ". shot_type is one of %s. camera_angle is one of %s. movement is one of %s.",
		joinEnum(domain.ShotTypes), joinEnum(domain.CameraAngles), joinEnum(domain.Movements))
	if maxShots > 0 {
		fmt.Fprintf(sb, " Use at most %d shots.", maxShots)
	}
	return sb.String()
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
