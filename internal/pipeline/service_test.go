package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filmgen/internal/domain"
	"filmgen/internal/infra/credentials"
	"filmgen/internal/metrics"
	"filmgen/internal/providers"
	"filmgen/internal/providers/registry"
	"filmgen/internal/recovery"
)

type fakeAdapter struct {
	service string
	kinds   []domain.Kind
	sub     providers.Submission
	err     error
	got     *domain.GenerationRequest
}

func (f *fakeAdapter) Service() string      { return f.service }
func (f *fakeAdapter) Kinds() []domain.Kind { return f.kinds }
func (f *fakeAdapter) Submit(_ context.Context, req domain.GenerationRequest) (providers.Submission, error) {
	f.got = &req
	return f.sub, f.err
}

type fakeResolver struct {
	cred domain.ResolvedCredential
	err  error
	got  []string
}

func (f *fakeResolver) Resolve(_ context.Context, service, callerID, explicitKey string) (domain.ResolvedCredential, error) {
	f.got = []string{service, callerID, explicitKey}
	return f.cred, f.err
}

type fakePoller struct {
	loc   domain.MediaLocator
	err   error
	calls int
}

func (f *fakePoller) Run(_ context.Context, job *domain.PollableJob) (domain.MediaLocator, error) {
	f.calls++
	job.Attempt = 3
	return f.loc, f.err
}

type fakePersister struct {
	url   string
	err   error
	dests []string
}

func (f *fakePersister) Persist(_ context.Context, loc domain.MediaLocator, dest string) (string, error) {
	f.dests = append(f.dests, dest)
	if f.err != nil {
		return loc.Reference(), f.err
	}
	return f.url, nil
}

type harness struct {
	adapter   *fakeAdapter
	resolver  *fakeResolver
	poller    *fakePoller
	persister *fakePersister
	svc       *Service
}

func newHarness(adapter *fakeAdapter) *harness {
	h := &harness{
		adapter:   adapter,
		resolver:  &fakeResolver{cred: domain.ResolvedCredential{Value: "k", Origin: domain.OriginUserStored}},
		poller:    &fakePoller{},
		persister: &fakePersister{url: "https://store.test/obj.png"},
	}
	h.svc = New(Options{
		Credentials: h.resolver,
		Router:      registry.New(nil, adapter),
		Poller:      h.poller,
		Persister:   h.persister,
		Metrics:     metrics.NewCollector("pipeline_test"),
	})
	return h
}

func openartAdapter(sub providers.Submission) *fakeAdapter {
	return &fakeAdapter{service: "openart", kinds: []domain.Kind{domain.KindImage}, sub: sub}
}

func boolPtr(b bool) *bool { return &b }

func TestValidate(t *testing.T) {
	base := Request{Kind: domain.KindImage, Prompt: "p", Provider: "openart", Credential: "sk", CallerID: "u1"}
	cases := []struct {
		name   string
		mutate func(*Request)
		ok     bool
	}{
		{"complete", func(*Request) {}, true},
		{"missing prompt", func(r *Request) { r.Prompt = "  " }, false},
		{"missing provider", func(r *Request) { r.Provider = "" }, false},
		{"missing credential", func(r *Request) { r.Credential = "" }, false},
		{"sentinel without caller", func(r *Request) {
			r.Credential = credentials.UseConfiguredKey
			r.CallerID = ""
			r.PersistRequested = boolPtr(false)
		}, false},
		{"persist by default without caller", func(r *Request) { r.CallerID = "" }, false},
		{"no persist without caller", func(r *Request) { r.CallerID = ""; r.PersistRequested = boolPtr(false) }, true},
		{"text ignores persistence", func(r *Request) { r.Kind = domain.KindText; r.CallerID = "" }, true},
		{"vision without attachment", func(r *Request) { r.Kind = domain.KindVision }, false},
		{"negative dimensions", func(r *Request) { r.Dimensions = &domain.Dimensions{Width: -1, Height: 10} }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			err := req.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Equal(t, http.StatusBadRequest, StatusFor(err))
		})
	}
}

func TestGenerateEndToEndWithoutPersistence(t *testing.T) {
	h := newHarness(openartAdapter(providers.Immediate(domain.MediaResult("openart/sdxl", domain.RemoteURL("https://x/img.png")))))
	out, err := h.svc.Generate(context.Background(), Request{
		Kind:             domain.KindImage,
		Provider:         "openart",
		Prompt:           "a red car",
		Credential:       "caller-key",
		PersistRequested: boolPtr(false),
	})
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, "https://x/img.png", out.Media)
	assert.Equal(t, "https://x/img.png", out.OriginalMedia)
	assert.False(t, out.Persisted)
	assert.Empty(t, h.persister.dests)
	assert.Equal(t, []string{"openart", "", "caller-key"}, h.resolver.got)
	assert.Equal(t, "sdxl", h.adapter.got.Model)
	assert.Equal(t, "a red car", h.adapter.got.Prompt)
}

func TestGeneratePersistsByDefault(t *testing.T) {
	h := newHarness(openartAdapter(providers.Immediate(domain.MediaResult("openart/sdxl", domain.InlineBytes("image/png", "aGk=")))))
	out, err := h.svc.Generate(context.Background(), Request{
		Kind: domain.KindImage, Provider: "OpenArt", Prompt: "p", Credential: credentials.UseConfiguredKey, CallerID: "user 7",
	})
	require.NoError(t, err)
	assert.True(t, out.Persisted)
	assert.Equal(t, "https://store.test/obj.png", out.Media)
	assert.Equal(t, "data:image/png;base64,aGk=", out.OriginalMedia)
	assert.Equal(t, []string{"generations/user_7/image"}, h.persister.dests)
}

func TestGeneratePollsDeferredJobs(t *testing.T) {
	job := domain.NewPollableJob("openart", "j1", []string{"https://p/{id}"}, nil)
	job.Label = "openart/sdxl"
	h := newHarness(openartAdapter(providers.Deferred(job)))
	h.poller.loc = domain.RemoteURL("https://x/polled.png")

	out, err := h.svc.Generate(context.Background(), Request{
		Kind: domain.KindImage, Provider: "openart", Prompt: "p", Credential: "k", PersistRequested: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.poller.calls)
	assert.Equal(t, "https://x/polled.png", out.Media)
	assert.Equal(t, "openart/sdxl", out.Result.ProviderLabel)
}

func TestGenerateStorageFailureIsNotFatal(t *testing.T) {
	h := newHarness(openartAdapter(providers.Immediate(domain.MediaResult("openart/sdxl", domain.RemoteURL("https://x/img.png")))))
	h.persister.err = domain.Wrap(domain.ErrStorageFailure, "storage", "persist", "", errors.New("disk full"))

	out, err := h.svc.Generate(context.Background(), Request{
		Kind: domain.KindImage, Provider: "openart", Prompt: "p", Credential: "k", CallerID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/img.png", out.Media)
	assert.False(t, out.Persisted)
	assert.ErrorIs(t, out.StorageErr, domain.ErrStorageFailure)
}

func TestGeneratePropagatesFatalErrors(t *testing.T) {
	t.Run("credential missing", func(t *testing.T) {
		h := newHarness(openartAdapter(providers.Submission{}))
		h.resolver.err = domain.Wrap(domain.ErrCredentialMissing, "credentials", "openart", "add a key", nil)
		_, err := h.svc.Generate(context.Background(), Request{
			Kind: domain.KindImage, Provider: "openart", Prompt: "p", Credential: credentials.UseConfiguredKey, CallerID: "u1",
		})
		assert.Equal(t, http.StatusBadRequest, StatusFor(err))
		assert.Nil(t, h.adapter.got)
	})
	t.Run("poll timeout", func(t *testing.T) {
		job := domain.NewPollableJob("openart", "j1", []string{"https://p/{id}"}, nil)
		h := newHarness(openartAdapter(providers.Deferred(job)))
		h.poller.err = domain.Wrap(domain.ErrTimeout, "openart", "job j1", "polling attempts exhausted", nil)
		_, err := h.svc.Generate(context.Background(), Request{
			Kind: domain.KindImage, Provider: "openart", Prompt: "p", Credential: "k", CallerID: "u1",
		})
		assert.Equal(t, domain.ErrorKindTimeout, domain.KindOf(err))
		assert.Equal(t, http.StatusInternalServerError, StatusFor(err))
		assert.Empty(t, h.persister.dests)
	})
	t.Run("empty submission", func(t *testing.T) {
		h := newHarness(openartAdapter(providers.Submission{}))
		_, err := h.svc.Generate(context.Background(), Request{
			Kind: domain.KindImage, Provider: "openart", Prompt: "p", Credential: "k", CallerID: "u1",
		})
		assert.Equal(t, domain.ErrorKindMalformedResponse, domain.KindOf(err))
	})
}

func TestBreakdownShotsRepairsTruncatedOutput(t *testing.T) {
	text := "Here you go:\n```json\n[{\"shot_type\":\"Wide establishing\",\"camera_angle\":\"aerial\",\"description\":\"city\"},{\"shot_type\":\"close\",\"description\":\"fa"
	adapter := &fakeAdapter{
		service: "anthropic",
		kinds:   []domain.Kind{domain.KindText},
		sub:     providers.Immediate(domain.TextResult("anthropic/claude", text)),
	}
	h := newHarness(adapter)

	res, err := h.svc.BreakdownShots(context.Background(), BreakdownRequest{
		Scene: "A chase across rooftops", Provider: "claude", Credential: "k", MaxShots: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, recovery.StrategyBraceRepair, res.Strategy)
	require.Len(t, res.Shots, 1)
	assert.Equal(t, 1, res.Shots[0].ShotNumber)
	assert.Equal(t, domain.ShotExtremeWide, res.Shots[0].ShotType)
	assert.Equal(t, domain.AngleBirdEye, res.Shots[0].CameraAngle)
	assert.Equal(t, "anthropic/claude", res.ProviderLabel)

	sys := adapter.got.SystemPrompt
	assert.True(t, strings.Contains(sys, "JSON array"), sys)
	assert.Contains(t, sys, "at most 6 shots")
	assert.Contains(t, sys, string(domain.AngleDutch))
}

func TestBreakdownShotsParseFailure(t *testing.T) {
	adapter := &fakeAdapter{
		service: "openai",
		kinds:   []domain.Kind{domain.KindText},
		sub:     providers.Immediate(domain.TextResult("openai/gpt-4o-mini", "I cannot produce a shot list for this.")),
	}
	h := newHarness(adapter)
	_, err := h.svc.BreakdownShots(context.Background(), BreakdownRequest{Scene: "s", Provider: "openai", Credential: "k"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParseFailure)
	assert.Equal(t, http.StatusInternalServerError, StatusFor(err))
	assert.Contains(t, UserMessage(err), "I cannot produce a shot list")
}

func TestDestinationDir(t *testing.T) {
	assert.Equal(t, "generations/abc-1/video", DestinationDir("abc-1", domain.KindVideo))
	assert.Equal(t, "generations/___etc/image", DestinationDir("../etc", domain.KindImage))
	assert.Equal(t, "generations/anonymous/image", DestinationDir(" ", domain.KindImage))
}
