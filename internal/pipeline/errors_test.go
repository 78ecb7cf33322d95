package pipeline

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"filmgen/internal/domain"
	"filmgen/internal/providers"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.Invalid("prompt is required")))
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.Wrap(domain.ErrCredentialMissing, "credentials", "openai", "", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(&providers.RejectionError{Service: "openai", Status: 401}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"policy rejection", &providers.RejectionError{Service: "openai", Status: 400, Message: "violates safety system", Policy: true}, MessagePolicy},
		{"plain rejection hides provider text", &providers.RejectionError{Service: "openai", Status: 401, Message: "Incorrect API key sk-abc"}, MessageRejected},
		{"reported policy failure", domain.Wrap(domain.ErrProviderReportedFailure, "runway", "job t1", "SAFETY: content flagged as NSFW", nil), MessagePolicy},
		{"reported failure", domain.Wrap(domain.ErrProviderReportedFailure, "bfl", "job b1", "worker crashed", nil), MessageFailed},
		{"malformed", providers.Malformed("gemini", "no candidates", nil), MessageMalformed},
		{"timeout", domain.Wrap(domain.ErrTimeout, "openart", "job j1", "", nil), MessageTimeout},
		{"unknown", errors.New("boom"), MessageInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserMessage(tc.err))
		})
	}

	invalid := domain.Invalid("prompt is required")
	assert.Equal(t, invalid.Error(), UserMessage(invalid))
	assert.Empty(t, UserMessage(nil))
}
