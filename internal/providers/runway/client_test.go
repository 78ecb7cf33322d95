package runway

import (
	"context"
	"strings"
	"testing"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
	"filmgen/internal/providers/providertest"
)

func TestSubmitTextToVideo(t *testing.T) {
	tr := providertest.NewTransport().On("POST /v1/text_to_video", providertest.Response{Body: `{"id":"task-1"}`})
	a := New(providers.Options{BaseURL: "https://runway.test", HTTPClient: tr.Client()})
	sub, err := a.Submit(context.Background(), domain.GenerationRequest{
		Kind:       domain.KindVideo,
		Prompt:     "waves",
		Credential: domain.ResolvedCredential{Value: "rw"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sub.Pending() || sub.Job.Endpoint(0) != "https://runway.test/v1/tasks/task-1" {
		t.Fatalf("job = %+v", sub.Job)
	}
	sent := tr.Last()
	if sent.Header.Get("X-Runway-Version") != apiVersion {
		t.Fatalf("version header missing")
	}
	if sub.Job.Header.Get("Authorization") != "Bearer rw" {
		t.Fatalf("job must keep credentials for polling")
	}
	if sent.JSON()["ratio"] != "1280:720" {
		t.Fatalf("ratio = %v", sent.JSON()["ratio"])
	}
}

func TestSubmitImageToVideo(t *testing.T) {
	tr := providertest.NewTransport().On("POST /v1/image_to_video", providertest.Response{Body: `{"id":"task-2"}`})
	a := New(providers.Options{BaseURL: "https://runway.test", HTTPClient: tr.Client()})
	_, err := a.Submit(context.Background(), domain.GenerationRequest{
		Kind:       domain.KindVideo,
		Prompt:     "pan across",
		Attachment: &domain.Attachment{MIME: "image/png", Data: []byte("hi")},
		Credential: domain.ResolvedCredential{Value: "rw"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(string(tr.Last().Body), "data:image/png;base64,aGk=") {
		t.Fatalf("prompt image missing: %s", tr.Last().Body)
	}
}

func TestRatio(t *testing.T) {
	if ratio(domain.Dimensions{Width: 10, Height: 10}) != "960:960" {
		t.Fatalf("square ratio")
	}
	if ratio(domain.Dimensions{Width: 9, Height: 16}) != "720:1280" {
		t.Fatalf("portrait ratio")
	}
}
