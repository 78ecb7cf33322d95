package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreUploadRefusesOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	url, err := store.Upload(ctx, "gen/a.png", []byte("one"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "http://localhost:8080/static/gen/a.png" {
		t.Fatalf("url = %s", url)
	}
	if _, err := store.Upload(ctx, "gen/a.png", []byte("two"), "image/png"); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("second upload err = %v, want ErrObjectExists", err)
	}
	got, err := os.ReadFile(filepath.Join(store.BasePath(), "gen", "a.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "one" {
		t.Fatalf("object was overwritten: %q", got)
	}
}

func TestFileStoreServesObjects(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	url, err := store.Upload(context.Background(), "x/y.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "/x/y.txt" {
		t.Fatalf("url = %s", url)
	}
	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x/y.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("serve = %d %q", rec.Code, rec.Body.String())
	}
}

func TestFileStoreHidesDirectories(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Upload(context.Background(), "generations/alice/image/a.png", []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	for _, path := range []string{"/", "/generations/", "/generations", "/generations/alice/image/"} {
		rec := httptest.NewRecorder()
		store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, want 404", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "alice") {
			t.Fatalf("GET %s listed contents: %q", path, rec.Body.String())
		}
	}
}

type failingClose struct {
	*os.File
}

func (f failingClose) Close() error {
	_ = f.File.Close()
	return errors.New("disk full")
}

func TestFileStoreRemovesFileWhenCloseFails(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	orig := createFile
	createFile = func(path string) (io.WriteCloser, error) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, err
		}
		return failingClose{f}, nil
	}
	t.Cleanup(func() { createFile = orig })

	if _, err := store.Upload(context.Background(), "gen/partial.png", []byte("half"), "image/png"); err == nil {
		t.Fatal("expected close error")
	}
	if _, err := os.Stat(filepath.Join(store.BasePath(), "gen", "partial.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a/b.png", "a/b.png", false},
		{"/a//b.png", "a/b.png", false},
		{"./a/./b.png", "a/b.png", false},
		{`a\b.png`, "a/b.png", false},
		{"../etc/passwd", "", true},
		{"a/../../x", "", true},
		{"  ", "", true},
		{".", "", true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("sanitizeKey(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("sanitizeKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore(" ", ""); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}

func TestDetectMIME(t *testing.T) {
	cases := []struct {
		header, url, want string
	}{
		{"image/jpeg; charset=binary", "https://x/a.png", "image/jpeg"},
		{"image/jpg", "", "image/jpeg"},
		{"application/octet-stream", "https://x/a.webp?sig=1", "image/webp"},
		{"", "https://x/clip.MP4", "video/mp4"},
		{"", "https://x/noext", FallbackMIME},
		{"text/html", "", FallbackMIME},
	}
	for _, tc := range cases {
		if got := DetectMIME(tc.header, tc.url); got != tc.want {
			t.Errorf("DetectMIME(%q, %q) = %q, want %q", tc.header, tc.url, got, tc.want)
		}
	}
	if Extension("video/quicktime") != ".mov" || Extension("weird/type") != ".png" {
		t.Fatalf("extension mapping wrong")
	}
}
