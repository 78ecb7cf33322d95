package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"filmgen/internal/domain"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fixedPersister(store BlobStore, rt http.RoundTripper) *Persister {
	return NewPersister(PersisterOptions{
		Store:      store,
		HTTPClient: &http.Client{Transport: rt},
		Now:        func() time.Time { return time.UnixMilli(1700000000000) },
		NewID:      func() string { return "id1" },
	})
}

func TestPersistInlineBytes(t *testing.T) {
	store := newMemStore()
	p := fixedPersister(store, nil)
	url, err := p.Persist(context.Background(), domain.InlineBytes("image/jpeg", "aGVsbG8="), "generations/u1/image")
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	wantKey := "generations/u1/image/1700000000000-id1.jpg"
	if url != "https://cdn.test/"+wantKey {
		t.Fatalf("url = %s", url)
	}
	if string(store.objects[wantKey]) != "hello" || store.types[wantKey] != "image/jpeg" {
		t.Fatalf("stored %q as %q", store.objects[wantKey], store.types[wantKey])
	}
}

func TestPersistRemoteUsesContentTypeThenExtension(t *testing.T) {
	cases := []struct {
		name   string
		header string
		source string
		ext    string
	}{
		{"header", "video/mp4", "https://p.test/out", ".mp4"},
		{"extension", "application/octet-stream", "https://p.test/out.webp", ".webp"},
		{"fallback", "", "https://p.test/out", ".png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
				h := http.Header{}
				if tc.header != "" {
					h.Set("Content-Type", tc.header)
				}
				return &http.Response{StatusCode: 200, Header: h, Body: io.NopCloser(bytes.NewBufferString("bytes")), Request: r}, nil
			})
			url, err := fixedPersister(store, rt).Persist(context.Background(), domain.RemoteURL(tc.source), "d")
			if err != nil {
				t.Fatalf("persist: %v", err)
			}
			if url != "https://cdn.test/d/1700000000000-id1"+tc.ext {
				t.Fatalf("url = %s", url)
			}
		})
	}
}

func TestPersistFallsBackToOriginalReference(t *testing.T) {
	failing := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})
	notFound := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 404, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(nil)), Request: r}, nil
	})
	uploadFails := newMemStore()
	uploadFails.err = errors.New("disk full")

	cases := []struct {
		name  string
		store BlobStore
		rt    http.RoundTripper
		loc   domain.MediaLocator
		want  string
	}{
		{"download error", newMemStore(), failing, domain.RemoteURL("https://p.test/a.png"), "https://p.test/a.png"},
		{"download status", newMemStore(), notFound, domain.RemoteURL("https://p.test/a.png"), "https://p.test/a.png"},
		{"bad base64", newMemStore(), nil, domain.InlineBytes("image/png", "%%%"), "data:image/png;base64,%%%"},
		{"upload error", uploadFails, nil, domain.InlineBytes("image/png", "aGk="), "data:image/png;base64,aGk="},
		{"no store", nil, nil, domain.InlineBytes("image/png", "aGk="), "data:image/png;base64,aGk="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fixedPersister(tc.store, tc.rt).Persist(context.Background(), tc.loc, "d")
			if !errors.Is(err, domain.ErrStorageFailure) {
				t.Fatalf("err = %v, want storage failure", err)
			}
			if domain.KindOf(err).Fatal() {
				t.Fatalf("storage failures must not be fatal")
			}
			if got != tc.want {
				t.Fatalf("reference = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestObjectKeysAreUnique(t *testing.T) {
	p := NewPersister(PersisterOptions{Store: newMemStore()})
	a := p.objectKey("d", "image/png")
	b := p.objectKey("d", "image/png")
	if a == b {
		t.Fatalf("keys collide: %s", a)
	}
}
