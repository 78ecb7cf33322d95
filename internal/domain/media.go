package domain

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MediaFamily tags how a provider handed back its media.
type MediaFamily int

const (
	MediaRemoteURL MediaFamily = iota + 1
	MediaInlineBytes
)

func (f MediaFamily) String() string {
	switch f {
	case MediaRemoteURL:
		return "remote_url"
	case MediaInlineBytes:
		return "inline_bytes"
	default:
		return "unknown"
	}
}

// MediaLocator points at generated media: either a remote URL or base64
// encoded bytes carried inline. The zero value is not a valid locator.
type MediaLocator struct {
	family MediaFamily
	url    string
	mime   string
	data   string
}

// RemoteURL builds a locator for media hosted by the provider.
func RemoteURL(u string) MediaLocator {
	return MediaLocator{family: MediaRemoteURL, url: strings.TrimSpace(u)}
}

// InlineBytes builds a locator for base64 media returned in the response body.
// A data URL is accepted and unpacked.
func InlineBytes(mime, b64 string) MediaLocator {
	b64 = strings.TrimSpace(b64)
	if strings.HasPrefix(b64, "data:") {
		if header, payload, ok := strings.Cut(b64, ","); ok {
			b64 = payload
			if mime == "" {
				mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
			}
		}
	}
	if strings.TrimSpace(mime) == "" {
		mime = "image/png"
	}
	return MediaLocator{family: MediaInlineBytes, mime: strings.TrimSpace(mime), data: b64}
}

func (m MediaLocator) Family() MediaFamily { return m.family }
func (m MediaLocator) IsZero() bool        { return m.family == 0 }
func (m MediaLocator) URL() string         { return m.url }
func (m MediaLocator) MIME() string        { return m.mime }
func (m MediaLocator) Base64() string      { return m.data }

// Reference is the string handed back to callers when the media is not
// persisted: the remote URL, or a data URL for inline bytes.
func (m MediaLocator) Reference() string {
	switch m.family {
	case MediaRemoteURL:
		return m.url
	case MediaInlineBytes:
		return "data:" + m.mime + ";base64," + m.data
	default:
		return ""
	}
}

// Decode returns the raw bytes of an inline locator.
func (m MediaLocator) Decode() ([]byte, error) {
	if m.family != MediaInlineBytes {
		return nil, errors.New("media locator is not inline")
	}
	data, err := base64.StdEncoding.DecodeString(m.data)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(m.data); rawErr == nil {
			return raw, nil
		}
		return nil, err
	}
	return data, nil
}
