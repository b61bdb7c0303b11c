// Package assets downloads remote images into transient local handles for
// multimodal prompts.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxHandles is the hard ceiling of handles per batch, whatever the caller asks for.
const MaxHandles = 10

const (
	defaultTimeout   = 10 * time.Second
	defaultCacheSize = 64
	defaultMaxSize   = 20 << 20
	filePrefix       = "snagent-asset-"
)

// ErrFetchFailed is recorded for every reference that could not be materialized.
var ErrFetchFailed = errors.New("asset fetch failed")

// Handle is a downloaded image backed by a temporary file.
type Handle struct {
	Path      string
	MIMEType  string
	SourceURL string
}

// Bytes reads the backing file.
func (h Handle) Bytes() ([]byte, error) {
	return os.ReadFile(h.Path)
}

// Config holds configuration for the Materializer.
//
// The cache is bounded by entries, not bytes: in the worst case it holds
// CacheSize * MaxImageSize bytes (64 * 20 MiB with the defaults).
type Config struct {
	Dir          string        // temp dir for handles, os.TempDir() when empty
	Timeout      time.Duration // per fetch
	CacheSize    int           // fetched images kept in memory
	MaxImageSize int64         // larger bodies fail the fetch, 20 MiB when zero
	Client       *http.Client
}

// Materializer fetches images and keeps recently fetched bytes in an LRU
// cache, so the post tier reuses what the account tier already downloaded.
type Materializer struct {
	client  *http.Client
	cache   *lru.Cache[string, []byte]
	dir     string
	timeout time.Duration
	maxSize int64
}

// New creates a new Materializer.
func New(cfg Config) (*Materializer, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxSize := cfg.MaxImageSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Materializer{
		client:  client,
		cache:   cache,
		dir:     cfg.Dir,
		timeout: timeout,
		maxSize: maxSize,
	}, nil
}

// Materialize fetches at most k of urls, in order and one at a time. A failed
// reference is logged, recorded in the batch and omitted; it never stops the
// remaining fetches. The caller must Release the batch.
func (m *Materializer) Materialize(ctx context.Context, urls []string, k int) *Batch {
	limit := min(k, len(urls), MaxHandles)
	b := &Batch{}

	for i := 0; i < limit; i++ {
		ref := urls[i]
		h, err := m.materialize(ctx, ref)
		if err != nil {
			slog.Warn("asset fetch failed", "url", ref, "error", err)
			b.failures = append(b.failures, fmt.Errorf("%w: %s: %w", ErrFetchFailed, ref, err))
			continue
		}
		b.handles = append(b.handles, h)
	}

	slog.Debug("materialized assets",
		"requested", limit,
		"handles", len(b.handles),
		"failed", len(b.failures),
	)
	return b
}

func (m *Materializer) materialize(ctx context.Context, ref string) (Handle, error) {
	data, ok := m.cache.Get(ref)
	if !ok {
		var err error
		data, err = m.fetch(ctx, ref)
		if err != nil {
			return Handle{}, err
		}
		m.cache.Add(ref, data)
	}

	f, err := os.CreateTemp(m.dir, filePrefix+"*"+extension(ref))
	if err != nil {
		return Handle{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return Handle{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return Handle{}, fmt.Errorf("close temp file: %w", err)
	}

	return Handle{
		Path:      f.Name(),
		MIMEType:  http.DetectContentType(data),
		SourceURL: ref,
	}, nil
}

func (m *Materializer) fetch(ctx context.Context, ref string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ref, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	// one extra byte tells a body at the limit from a truncated one
	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > m.maxSize {
		return nil, fmt.Errorf("body exceeds %d bytes", m.maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return data, nil
}

// extension returns the file extension of the URL path, ".jpg" by default.
func extension(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic":
		return ext
	default:
		return ".jpg"
	}
}

// Batch is the set of handles from one Materialize call.
type Batch struct {
	handles  []Handle
	failures []error

	once sync.Once
}

// Handles returns the materialized handles in their original relative order.
func (b *Batch) Handles() []Handle {
	return b.handles
}

// Failures returns one error per omitted reference.
func (b *Batch) Failures() []error {
	return b.failures
}

// Release deletes the backing files. Safe to call more than once.
func (b *Batch) Release() {
	b.once.Do(func() {
		for _, h := range b.handles {
			if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to release asset", "path", h.Path, "error", err)
			}
		}
	})
}
