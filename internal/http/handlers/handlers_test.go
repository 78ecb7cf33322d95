package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filmgen/internal/domain"
	"filmgen/internal/pipeline"
	"filmgen/internal/providers"
	"filmgen/internal/recovery"
)

type fakeGenerator struct {
	outcome   pipeline.Outcome
	breakdown pipeline.Breakdown
	err       error
	got       pipeline.Request
	gotShots  pipeline.BreakdownRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req pipeline.Request) (pipeline.Outcome, error) {
	f.got = req
	return f.outcome, f.err
}

func (f *fakeGenerator) BreakdownShots(_ context.Context, req pipeline.BreakdownRequest) (pipeline.Breakdown, error) {
	f.gotShots = req
	return f.breakdown, f.err
}

func call(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestGenerateImage(t *testing.T) {
	gen := &fakeGenerator{outcome: pipeline.Outcome{
		Result:        domain.MediaResult("openart/sdxl", domain.RemoteURL("https://x/img.png")),
		Media:         "https://store/obj.png",
		OriginalMedia: "https://x/img.png",
		Persisted:     true,
	}}
	app := NewApp(gen, nil)

	rec, out := call(t, app.GenerateImage, `{"prompt":"a red car","provider":"OpenArt","credential":"k","callerId":"u1","persistRequested":true,"dimensions":{"width":1024,"height":1024}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "https://store/obj.png", out["media"])
	assert.Equal(t, "https://x/img.png", out["originalMedia"])
	assert.Equal(t, "openart/sdxl", out["provider"])
	assert.NotContains(t, out, "warning")
	errField, present := out["error"]
	assert.True(t, present)
	assert.Nil(t, errField)

	assert.Equal(t, domain.KindImage, gen.got.Kind)
	assert.Equal(t, "u1", gen.got.CallerID)
	require.NotNil(t, gen.got.PersistRequested)
	assert.True(t, *gen.got.PersistRequested)
	assert.Equal(t, 1024, gen.got.Dimensions.Width)
}

func TestGenerateVideoStorageWarning(t *testing.T) {
	gen := &fakeGenerator{outcome: pipeline.Outcome{
		Result:        domain.MediaResult("runway/gen4_turbo", domain.RemoteURL("https://r/v.mp4")),
		Media:         "https://r/v.mp4",
		OriginalMedia: "https://r/v.mp4",
		StorageErr:    domain.Wrap(domain.ErrStorageFailure, "storage", "persist", "", nil),
	}}
	app := NewApp(gen, nil)

	rec, out := call(t, app.GenerateVideo, `{"prompt":"p","provider":"runway","credential":"k","callerId":"u1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://r/v.mp4", out["media"])
	assert.Equal(t, false, out["persisted"])
	assert.Equal(t, storageWarning, out["warning"])
	assert.Equal(t, domain.KindVideo, gen.got.Kind)
	assert.Nil(t, gen.got.PersistRequested)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		body    string
		status  int
		message string
	}{
		{"bad json", nil, `{"prompt":`, http.StatusBadRequest, "invalid JSON payload"},
		{"invalid", domain.Invalid("prompt is required"), `{}`, http.StatusBadRequest, "prompt is required"},
		{"policy", &providers.RejectionError{Service: "openai", Status: 400, Message: "safety system", Policy: true}, `{}`, http.StatusInternalServerError, pipeline.MessagePolicy},
		{"rejected", &providers.RejectionError{Service: "openai", Status: 401, Message: "bad key sk-123"}, `{}`, http.StatusInternalServerError, pipeline.MessageRejected},
		{"timeout", domain.Wrap(domain.ErrTimeout, "bfl", "job", "", nil), `{}`, http.StatusInternalServerError, pipeline.MessageTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := NewApp(&fakeGenerator{err: tc.err}, nil)
			rec, out := call(t, app.GenerateImage, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Contains(t, out["error"], tc.message)
			for _, field := range []string{"media", "originalMedia"} {
				v, present := out[field]
				assert.True(t, present, field)
				assert.Nil(t, v, field)
			}
		})
	}
}

func TestAnalyzeDecodesAttachment(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	encoded := base64.StdEncoding.EncodeToString(png)

	for name, image := range map[string]string{
		"data url": "data:image/png;base64," + encoded,
		"bare":     encoded,
	} {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{outcome: pipeline.Outcome{Result: domain.TextResult("gemini/gemini-2.5-flash", "A harbour at dusk")}}
			app := NewApp(gen, nil)
			rec, out := call(t, app.Analyze, `{"provider":"gemini","credential":"k","image":"`+image+`"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "A harbour at dusk", out["text"])
			assert.Equal(t, domain.KindVision, gen.got.Kind)
			assert.Equal(t, defaultAnalyzePrompt, gen.got.Prompt)
			require.NotNil(t, gen.got.Attachment)
			assert.Equal(t, "image/png", gen.got.Attachment.MIME)
			assert.Equal(t, png, gen.got.Attachment.Data)
		})
	}
}

func TestParseAttachmentRejects(t *testing.T) {
	for _, tc := range []struct{ image, mime string }{
		{"", ""},
		{"data:image/png,notbase64", ""},
		{"!!!", ""},
		{base64.StdEncoding.EncodeToString([]byte("plain text")), ""},
		{base64.StdEncoding.EncodeToString([]byte("x")), "video/mp4"},
	} {
		_, err := parseAttachment(tc.image, tc.mime)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, "image %q", tc.image)
	}
}

func TestBreakdown(t *testing.T) {
	dur := 4
	gen := &fakeGenerator{breakdown: pipeline.Breakdown{
		Shots: []domain.ShotRecord{{
			ShotNumber: 1, ShotType: domain.ShotWide, CameraAngle: domain.AngleEyeLevel, Movement: domain.MoveStatic,
			Description: "harbour", Characters: []string{"Maya"}, DurationSeconds: &dur, Status: domain.ShotStatusPlanned,
		}},
		Strategy:      recovery.StrategyBraceRepair,
		ProviderLabel: "anthropic/claude-3-5-sonnet-latest",
	}}
	app := NewApp(gen, nil)

	rec, out := call(t, app.Breakdown, `{"scene":"Maya waits at the harbour","provider":"claude","credential":"k","maxShots":4}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "brace_repair", out["strategy"])
	shots := out["shots"].([]any)
	require.Len(t, shots, 1)
	shot := shots[0].(map[string]any)
	assert.Equal(t, "wide", shot["shotType"])
	assert.Equal(t, float64(4), shot["durationSeconds"])
	assert.Equal(t, 4, gen.gotShots.MaxShots)

	rec, out = call(t, app.Breakdown, `{"scene":"s","provider":"claude","credential":"k","maxShots":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewApp(nil, nil).Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	app := NewApp(nil, nil)
	rec := httptest.NewRecorder()
	app.Ready(rec, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	app.ReadyCheck = func(context.Context) error { return errors.New("db down") }
	rec = httptest.NewRecorder()
	app.Ready(rec, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpenAPIConditionalGet(t *testing.T) {
	app := NewApp(nil, nil)
	rec := httptest.NewRecorder()
	app.OpenAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	app.OpenAPIJSON(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}
