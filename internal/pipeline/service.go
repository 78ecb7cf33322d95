// Package pipeline runs one generation request end to end: label
// resolution, credentials, provider submission, polling and persistence.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/infra/credentials"
	"filmgen/internal/metrics"
	"filmgen/internal/providers/registry"
	"filmgen/internal/telemetry"
)

type CredentialResolver interface {
	Resolve(ctx context.Context, service, callerID, explicitKey string) (domain.ResolvedCredential, error)
}

type AdapterRouter interface {
	Resolve(kind domain.Kind, provider, model string) (registry.Route, error)
}

type JobRunner interface {
	Run(ctx context.Context, job *domain.PollableJob) (domain.MediaLocator, error)
}

type MediaPersister interface {
	Persist(ctx context.Context, loc domain.MediaLocator, destDir string) (string, error)
}

type Options struct {
	Credentials CredentialResolver
	Router      AdapterRouter
	Poller      JobRunner
	Persister   MediaPersister
	Logger      *infra.Logger
	Metrics     *metrics.Collector
}

// Service holds no per-request state; one instance serves every request.
type Service struct {
	creds     CredentialResolver
	router    AdapterRouter
	poller    JobRunner
	persister MediaPersister
	logger    *infra.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
}

func New(opts Options) *Service {
	return &Service{
		creds:     opts.Credentials,
		router:    opts.Router,
		poller:    opts.Poller,
		persister: opts.Persister,
		logger:    infra.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		tracer:    telemetry.Tracer(),
	}
}

// Request is the caller-facing input of a generation.
type Request struct {
	Kind       domain.Kind
	Prompt     string
	Provider   string
	Model      string
	Credential string
	CallerID   string
	// PersistRequested defaults to true for media kinds when nil.
	PersistRequested *bool
	Dimensions       *domain.Dimensions
	Attachment       *domain.Attachment
	SystemPrompt     string
}

func (r Request) persist() bool {
	if !r.Kind.ProducesMedia() {
		return false
	}
	return r.PersistRequested == nil || *r.PersistRequested
}

// Outcome is a finished generation. For media kinds Media is the persisted
// URL, or the provider reference when persistence was skipped or failed.
type Outcome struct {
	Result        *domain.GenerationResult
	Media         string
	OriginalMedia string
	Persisted     bool
	// StorageErr is the non-fatal persistence failure, if any.
	StorageErr error
}

// Validate applies the pre-flight checks that run before any network call.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Prompt) == "":
		return domain.Invalid("prompt is required")
	case strings.TrimSpace(r.Provider) == "":
		return domain.Invalid("provider is required")
	case strings.TrimSpace(r.Credential) == "":
		return domain.Invalid("credential is required; pass %q to use a configured key", credentials.UseConfiguredKey)
	}
	if strings.TrimSpace(r.CallerID) == "" {
		if credentials.IsSentinel(r.Credential) {
			return domain.Invalid("callerId is required when using a configured key")
		}
		if r.persist() {
			return domain.Invalid("callerId is required when persistence is requested")
		}
	}
	if r.Dimensions != nil && (r.Dimensions.Width < 0 || r.Dimensions.Height < 0) {
		return domain.Invalid("dimensions must be positive")
	}
	if r.Kind == domain.KindVision && (r.Attachment == nil || len(r.Attachment.Data) == 0) {
		return domain.Invalid("an image attachment is required for analysis")
	}
	return nil
}

// Generate runs the request to completion. Errors are fatal; a storage
// failure is reported on Outcome.StorageErr instead.
func (s *Service) Generate(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "pipeline.generate", trace.WithAttributes(
		attribute.String("filmgen.kind", string(req.Kind)),
		attribute.String("filmgen.provider", req.Provider),
	))
	defer span.End()

	out, service, err := s.generate(ctx, req, span)
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn().Err(err).
			Str("kind", string(req.Kind)).
			Str("provider", req.Provider).
			Str("service", service).
			Str("error_kind", outcome).
			Msg("pipeline: generation failed")
	}
	s.metrics.RecordGeneration(string(req.Kind), service, outcome, time.Since(start))
	return out, err
}

func (s *Service) generate(ctx context.Context, req Request, span trace.Span) (Outcome, string, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, "", err
	}
	route, err := s.router.Resolve(req.Kind, req.Provider, req.Model)
	if err != nil {
		return Outcome{}, "", err
	}
	span.SetAttributes(attribute.String("filmgen.service", route.Service), attribute.String("filmgen.model", route.Model))

	cred, err := s.creds.Resolve(ctx, route.Service, req.CallerID, req.Credential)
	if err != nil {
		return Outcome{}, route.Service, err
	}
	s.metrics.RecordCredential(route.Service, string(cred.Origin))

	genReq := domain.GenerationRequest{
		Kind:         req.Kind,
		Provider:     route.Service,
		Model:        route.Model,
		Prompt:       strings.TrimSpace(req.Prompt),
		SystemPrompt: req.SystemPrompt,
		Dimensions:   req.Dimensions,
		Attachment:   req.Attachment,
		Credential:   cred,
	}
	sub, err := route.Adapter.Submit(ctx, genReq)
	if err != nil {
		return Outcome{}, route.Service, err
	}

	result := sub.Result
	if sub.Pending() {
		pollCtx, pollSpan := s.tracer.Start(ctx, "pipeline.poll", trace.WithAttributes(
			attribute.String("filmgen.job_id", sub.Job.ID),
		))
		loc, err := s.poller.Run(pollCtx, sub.Job)
		pollSpan.SetAttributes(attribute.Int("filmgen.poll_attempts", sub.Job.Attempt), attribute.String("filmgen.job_status", string(sub.Job.Status)))
		pollSpan.End()
		if err != nil {
			return Outcome{}, route.Service, err
		}
		label := sub.Job.Label
		if label == "" {
			label = route.Service + "/" + route.Model
		}
		result = domain.MediaResult(label, loc)
	}
	if result == nil {
		return Outcome{}, route.Service, domain.Wrap(domain.ErrMalformedResponse, route.Service, "submit", "adapter returned neither result nor job", nil)
	}

	out := Outcome{Result: result}
	if !req.Kind.ProducesMedia() {
		return out, route.Service, nil
	}
	if result.Media == nil || result.Media.IsZero() {
		return Outcome{}, route.Service, domain.Wrap(domain.ErrMalformedResponse, route.Service, "submit", "result carries no media", nil)
	}

	out.OriginalMedia = result.Media.Reference()
	out.Media = out.OriginalMedia
	if req.persist() && s.persister != nil {
		url, perr := s.persister.Persist(ctx, *result.Media, DestinationDir(req.CallerID, req.Kind))
		out.Media = url
		if perr != nil {
			out.StorageErr = perr
		} else {
			out.Persisted = true
		}
	}
	s.logger.Info().
		Str("kind", string(req.Kind)).
		Str("provider_label", result.ProviderLabel).
		Str("credential_origin", string(cred.Origin)).
		Bool("persisted", out.Persisted).
		Msg("pipeline: generation succeeded")
	return out, route.Service, nil
}

// DestinationDir is where a caller's media of one kind is stored.
func DestinationDir(callerID string, kind domain.Kind) string {
	return "generations/" + safeSegment(callerID) + "/" + string(kind)
}

func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "anonymous"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
