package domain

// Kind enumerates what a generation request produces.
type Kind string

const (
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindVision Kind = "vision"
	KindText   Kind = "text"
)

// ProducesMedia reports whether results of this kind carry a MediaLocator
// rather than text.
func (k Kind) ProducesMedia() bool {
	return k == KindImage || k == KindVideo
}

// Dimensions of requested media in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultDimensions applies when the caller does not ask for a size.
var DefaultDimensions = Dimensions{Width: 1280, Height: 720}

// Attachment is an input file sent along with the prompt (vision input).
type Attachment struct {
	MIME string
	Data []byte
}

// CredentialOrigin records which source produced a credential. It is only
// used for diagnostics.
type CredentialOrigin string

const (
	OriginExplicit    CredentialOrigin = "explicit"
	OriginSystemWide  CredentialOrigin = "system_wide"
	OriginUserStored  CredentialOrigin = "user_stored"
	OriginEnvironment CredentialOrigin = "environment"
)

type ResolvedCredential struct {
	Value  string
	Origin CredentialOrigin
}

// GenerationRequest is the provider-neutral input handed to an adapter.
type GenerationRequest struct {
	Kind         Kind
	Provider     string
	Model        string
	Prompt       string
	SystemPrompt string
	Dimensions   *Dimensions
	Attachment   *Attachment
	Credential   ResolvedCredential
}

// Size returns the requested dimensions or the default.
func (r GenerationRequest) Size() Dimensions {
	if r.Dimensions == nil || r.Dimensions.Width <= 0 || r.Dimensions.Height <= 0 {
		return DefaultDimensions
	}
	return *r.Dimensions
}

// GenerationResult is the terminal outcome of a provider call. Media is set for
// image and video kinds, Text for vision and text kinds.
type GenerationResult struct {
	Success       bool
	Media         *MediaLocator
	Text          string
	Error         ErrorKind
	ProviderLabel string
}

// MediaResult builds a successful media result.
func MediaResult(label string, loc MediaLocator) *GenerationResult {
	return &GenerationResult{Success: true, Media: &loc, ProviderLabel: label}
}

// TextResult builds a successful text result.
func TextResult(label, text string) *GenerationResult {
	return &GenerationResult{Success: true, Text: text, ProviderLabel: label}
}
