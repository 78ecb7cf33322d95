package bfl

import (
	"context"
	"errors"
	"testing"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
	"filmgen/internal/providers/providertest"
)

func TestSubmitQueuesJobWithPollingURLFirst(t *testing.T) {
	tr := providertest.NewTransport().On("POST /v1/flux-pro-1.1", providertest.Response{
		Body: `{"id":"abc","polling_url":"https://eu.bfl.test/v1/get_result?id=abc"}`,
	})
	a := New(providers.Options{BaseURL: "https://bfl.test", HTTPClient: tr.Client()})
	sub, err := a.Submit(context.Background(), domain.GenerationRequest{
		Kind:       domain.KindImage,
		Prompt:     "forest",
		Credential: domain.ResolvedCredential{Value: "bfl-key"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sub.Pending() {
		t.Fatalf("bfl submissions are always deferred")
	}
	want := []string{"https://eu.bfl.test/v1/get_result?id=abc", "https://bfl.test/v1/get_result?id={id}"}
	for i, w := range want {
		if sub.Job.CandidateEndpoints[i] != w {
			t.Fatalf("candidate[%d] = %s, want %s", i, sub.Job.CandidateEndpoints[i], w)
		}
	}
	if sub.Job.Endpoint(1) != "https://bfl.test/v1/get_result?id=abc" {
		t.Fatalf("expanded = %s", sub.Job.Endpoint(1))
	}
	sent := tr.Last()
	if sent.Header.Get("X-Key") != "bfl-key" {
		t.Fatalf("x-key header missing")
	}
	body := sent.JSON()
	if body["width"] != float64(1280) || body["height"] != float64(704) {
		t.Fatalf("size = %v x %v", body["width"], body["height"])
	}
}

func TestSubmitWithoutID(t *testing.T) {
	tr := providertest.NewTransport().On("POST /v1/flux-pro-1.1", providertest.Response{Body: `{}`})
	a := New(providers.Options{BaseURL: "https://bfl.test", HTTPClient: tr.Client()})
	_, err := a.Submit(context.Background(), domain.GenerationRequest{Kind: domain.KindImage, Prompt: "x", Credential: domain.ResolvedCredential{Value: "k"}})
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("err = %v", err)
	}
}

func TestClampSize(t *testing.T) {
	got := clampSize(domain.Dimensions{Width: 4000, Height: 100})
	if got.Width != 1440 || got.Height != 256 {
		t.Fatalf("clampSize = %+v", got)
	}
}
