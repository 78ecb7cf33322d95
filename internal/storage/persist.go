package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/metrics"
)

// maxDownloadBytes bounds a single remote asset.
const maxDownloadBytes = 256 << 20

type PersisterOptions struct {
	Store      BlobStore
	HTTPClient *http.Client
	Logger     *infra.Logger
	Metrics    *metrics.Collector
	Now        func() time.Time
	NewID      func() string
}

// Persister copies generated media into a BlobStore.
type Persister struct {
	store   BlobStore
	client  *http.Client
	logger  *infra.Logger
	metrics *metrics.Collector
	now     func() time.Time
	newID   func() string
}

func NewPersister(opts PersisterOptions) *Persister {
	p := &Persister{
		store:   opts.Store,
		client:  opts.HTTPClient,
		logger:  infra.OrNop(opts.Logger),
		metrics: opts.Metrics,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = func() string { return uuid.NewString() }
	}
	return p
}

// Persist stores the media under destDir and returns its public URL. On any
// failure it returns the locator's own reference together with an
// ErrStorageFailure error, so the returned string is always usable.
func (p *Persister) Persist(ctx context.Context, loc domain.MediaLocator, destDir string) (string, error) {
	url, err := p.persist(ctx, loc, destDir)
	if err != nil {
		p.metrics.RecordStorageFallback(loc.Family().String())
		p.logger.Warn().Err(err).
			Str("family", loc.Family().String()).
			Str("dest", destDir).
			Msg("storage: persist failed, returning original media reference")
		return loc.Reference(), domain.Wrap(domain.ErrStorageFailure, "storage", "persist", "", err)
	}
	return url, nil
}

func (p *Persister) persist(ctx context.Context, loc domain.MediaLocator, destDir string) (string, error) {
	if p.store == nil {
		return "", errors.New("no blob store configured")
	}
	var (
		data      []byte
		mediaType string
		err       error
	)
	switch loc.Family() {
	case domain.MediaInlineBytes:
		data, err = loc.Decode()
		if err != nil {
			return "", fmt.Errorf("decode inline media: %w", err)
		}
		mediaType = DetectMIME(loc.MIME(), "")
	case domain.MediaRemoteURL:
		data, mediaType, err = p.download(ctx, loc.URL())
		if err != nil {
			return "", err
		}
	default:
		return "", errors.New("empty media locator")
	}
	if len(data) == 0 {
		return "", errors.New("media is empty")
	}

	key := p.objectKey(destDir, mediaType)
	url, err := p.store.Upload(ctx, key, data, mediaType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	p.logger.Debug().Str("key", key).Str("mime", mediaType).Int("bytes", len(data)).Msg("storage: media persisted")
	return url, nil
}

// download fetches a remote asset server side.
func (p *Persister) download(ctx context.Context, source string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read download: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("download exceeds %d bytes", maxDownloadBytes)
	}
	return data, DetectMIME(resp.Header.Get("Content-Type"), source), nil
}

// objectKey is unique per upload: <destDir>/<unix-millis>-<id><ext>.
func (p *Persister) objectKey(destDir, mediaType string) string {
	name := fmt.Sprintf("%d-%s%s", p.now().UnixMilli(), p.newID(), Extension(mediaType))
	dir := strings.Trim(strings.TrimSpace(destDir), "/")
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
