package openart

import (
	"context"
	"errors"
	"testing"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
	"filmgen/internal/providers/providertest"
)

func submit(t *testing.T, body string) (providers.Submission, error) {
	t.Helper()
	tr := providertest.NewTransport().On("POST /api/v1/generations", providertest.Response{Body: body})
	a := New(providers.Options{BaseURL: "https://openart.test/api", HTTPClient: tr.Client()})
	return a.Submit(context.Background(), domain.GenerationRequest{
		Kind:       domain.KindImage,
		Prompt:     "a red car",
		Credential: domain.ResolvedCredential{Value: "oa-key"},
	})
}

func TestSubmitVariants(t *testing.T) {
	t.Run("url", func(t *testing.T) {
		sub, err := submit(t, `{"url":"https://x/img.png"}`)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if sub.Result.Media.URL() != "https://x/img.png" {
			t.Fatalf("media = %q", sub.Result.Media.Reference())
		}
	})
	t.Run("images array", func(t *testing.T) {
		sub, err := submit(t, `{"images":[{"url":""},{"url":"https://x/2.png"}]}`)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if sub.Result.Media.URL() != "https://x/2.png" {
			t.Fatalf("media = %q", sub.Result.Media.Reference())
		}
	})
	t.Run("images of bare urls", func(t *testing.T) {
		sub, err := submit(t, `{"images":["", 42, "https://x/1.png"]}`)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if sub.Result.Media.URL() != "https://x/1.png" {
			t.Fatalf("media = %q", sub.Result.Media.Reference())
		}
	})
	t.Run("base64", func(t *testing.T) {
		sub, err := submit(t, `{"b64_json":"aGk="}`)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if sub.Result.Media.Family() != domain.MediaInlineBytes {
			t.Fatalf("family = %v", sub.Result.Media.Family())
		}
	})
	t.Run("job", func(t *testing.T) {
		sub, err := submit(t, `{"job_id":"job-7"}`)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !sub.Pending() {
			t.Fatalf("expected pending job")
		}
		job := sub.Job
		if job.ID != "job-7" || job.Status != domain.JobPending || job.Label != "openart/sdxl" {
			t.Fatalf("job = %+v", job)
		}
		if got := job.Endpoint(0); got != "https://openart.test/api/v1/jobs/job-7" {
			t.Fatalf("endpoint = %s", got)
		}
		if len(job.CandidateEndpoints) != 3 {
			t.Fatalf("candidates = %v", job.CandidateEndpoints)
		}
		if job.Header.Get("Authorization") != "Bearer oa-key" {
			t.Fatalf("job header not carried")
		}
	})
	t.Run("empty", func(t *testing.T) {
		_, err := submit(t, `{"status":"ok"}`)
		if !errors.Is(err, domain.ErrMalformedResponse) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestRejectsNonImage(t *testing.T) {
	_, err := New(providers.Options{}).Submit(context.Background(), domain.GenerationRequest{Kind: domain.KindVideo})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
}
