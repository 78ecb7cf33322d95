// Package poller drives asynchronous provider jobs to a terminal state by
// probing their status endpoints on a fixed interval.
package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/metrics"
	"filmgen/internal/providers"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	Interval    time.Duration
	MaxAttempts int
	HTTPClient  *http.Client
	Logger      *infra.Logger
	Metrics     *metrics.Collector
	Sleep       SleepFunc
}

// Poller is stateless between calls; every Run owns its job exclusively.
type Poller struct {
	interval    time.Duration
	maxAttempts int
	client      *http.Client
	logger      *infra.Logger
	metrics     *metrics.Collector
	sleep       SleepFunc
}

func New(opts Options) *Poller {
	p := &Poller{
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		client:      opts.HTTPClient,
		logger:      infra.OrNop(opts.Logger),
		metrics:     opts.Metrics,
		sleep:       opts.Sleep,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// Run polls job until it succeeds, fails or runs out of attempts. The job is
// mutated in place and left in a terminal status.
func (p *Poller) Run(ctx context.Context, job *domain.PollableJob) (domain.MediaLocator, error) {
	if job == nil || job.ID == "" || len(job.CandidateEndpoints) == 0 {
		return domain.MediaLocator{}, domain.Invalid("job needs an id and at least one status endpoint")
	}
	if err := p.transition(job, domain.EventStart); err != nil {
		return domain.MediaLocator{}, err
	}
	log := p.logger.With().Str("service", job.Service).Str("job_id", job.ID).Logger()

	for job.Attempt < p.maxAttempts {
		if job.Attempt > 0 {
			if err := p.sleep(ctx, p.interval); err != nil {
				return p.abandon(job, err)
			}
		}
		job.Attempt++
		p.metrics.RecordPollTick(job.Service)

		payload, endpoint, ok := p.probe(ctx, job)
		if ctx.Err() != nil {
			return p.abandon(job, ctx.Err())
		}
		if !ok {
			log.Debug().Int("attempt", job.Attempt).Msg("poller: no candidate endpoint answered")
			_ = p.transition(job, domain.EventInProgress)
			continue
		}

		switch v := classify(payload); v.state {
		case stateSucceeded:
			loc, found := ExtractMedia(payload)
			if !found {
				job.Error = "job succeeded without a media reference"
				_ = p.transition(job, domain.EventFailed)
				return domain.MediaLocator{}, providers.Malformed(job.Service, job.Error, nil)
			}
			job.Result = &loc
			_ = p.transition(job, domain.EventSucceeded)
			log.Info().Int("attempt", job.Attempt).Str("endpoint", endpoint).Msg("poller: job succeeded")
			return loc, nil
		case stateFailed:
			job.Error = v.message
			_ = p.transition(job, domain.EventFailed)
			log.Warn().Int("attempt", job.Attempt).Str("status", v.raw).Str("reason", v.message).Msg("poller: provider reported failure")
			return domain.MediaLocator{}, domain.Wrap(domain.ErrProviderReportedFailure, job.Service, "job "+job.ID, v.message, nil)
		default:
			log.Debug().Int("attempt", job.Attempt).Str("status", v.raw).Msg("poller: job in progress")
			_ = p.transition(job, domain.EventInProgress)
		}
	}

	job.Error = "polling attempts exhausted"
	_ = p.transition(job, domain.EventExhausted)
	log.Warn().Int("attempts", job.Attempt).Msg("poller: gave up waiting for job")
	return domain.MediaLocator{}, domain.Wrap(domain.ErrTimeout, job.Service, "job "+job.ID, job.Error, nil)
}

// probe tries every candidate in order and returns the first 2xx payload
// that decodes as JSON.
func (p *Poller) probe(ctx context.Context, job *domain.PollableJob) (any, string, bool) {
	for i := range job.CandidateEndpoints {
		endpoint := job.Endpoint(i)
		raw, err := providers.Do(ctx, p.client, providers.Call{
			Service: job.Service,
			Method:  http.MethodGet,
			URL:     endpoint,
			Header:  job.Header,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", false
			}
			p.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("poller: candidate missed")
			continue
		}
		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			p.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("poller: candidate returned non-json body")
			continue
		}
		return payload, endpoint, true
	}
	return nil, "", false
}

func (p *Poller) abandon(job *domain.PollableJob, cause error) (domain.MediaLocator, error) {
	job.Error = "polling cancelled"
	_ = p.transition(job, domain.EventExhausted)
	return domain.MediaLocator{}, domain.Wrap(domain.ErrTimeout, job.Service, "job "+job.ID, job.Error, cause)
}

func (p *Poller) transition(job *domain.PollableJob, ev domain.JobEvent) error {
	from := job.Status
	if err := job.Apply(ev); err != nil {
		return err
	}
	if from != job.Status {
		p.metrics.RecordJobTransition(job.Service, string(from), string(job.Status))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
