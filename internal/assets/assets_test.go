package assets

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newImageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/missing.jpg":
			http.NotFound(w, r)
		case "/empty.jpg":
			w.WriteHeader(http.StatusOK)
		case "/large.png":
			w.Write(bytes.Repeat(pngHeader, 4))
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
			w.Write(pngHeader)
		default:
			w.Write(pngHeader)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestMaterializer(t *testing.T, timeout time.Duration) *Materializer {
	t.Helper()
	m, err := New(Config{Dir: t.TempDir(), Timeout: timeout})
	require.NoError(t, err)
	return m
}

func TestMaterialize_OmitsFailures(t *testing.T) {
	server := newImageServer(t, nil)
	m := newTestMaterializer(t, time.Second)

	urls := []string{
		server.URL + "/a.png",
		server.URL + "/missing.jpg",
		server.URL + "/c.png",
	}

	batch := m.Materialize(context.Background(), urls, 3)
	defer batch.Release()

	handles := batch.Handles()
	require.Len(t, handles, 2)
	assert.Equal(t, urls[0], handles[0].SourceURL)
	assert.Equal(t, urls[2], handles[1].SourceURL)
	assert.Equal(t, "image/png", handles[0].MIMEType)

	require.Len(t, batch.Failures(), 1)
	assert.ErrorIs(t, batch.Failures()[0], ErrFetchFailed)
	assert.Contains(t, batch.Failures()[0].Error(), "HTTP 404")

	data, err := handles[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestMaterialize_EmptyBodyAndTimeout(t *testing.T) {
	server := newImageServer(t, nil)
	m := newTestMaterializer(t, 50*time.Millisecond)

	batch := m.Materialize(context.Background(), []string{
		server.URL + "/empty.jpg",
		server.URL + "/slow.jpg",
		server.URL + "/ok.jpg",
	}, 3)
	defer batch.Release()

	require.Len(t, batch.Handles(), 1)
	assert.Equal(t, server.URL+"/ok.jpg", batch.Handles()[0].SourceURL)
	assert.Len(t, batch.Failures(), 2)
}

func TestMaterialize_OversizedBody(t *testing.T) {
	server := newImageServer(t, nil)
	m, err := New(Config{Dir: t.TempDir(), Timeout: time.Second, MaxImageSize: int64(2 * len(pngHeader))})
	require.NoError(t, err)

	batch := m.Materialize(context.Background(), []string{
		server.URL + "/large.png",
		server.URL + "/ok.png",
	}, 2)
	defer batch.Release()

	require.Len(t, batch.Handles(), 1)
	assert.Equal(t, server.URL+"/ok.png", batch.Handles()[0].SourceURL)
	require.Len(t, batch.Failures(), 1)
	assert.ErrorIs(t, batch.Failures()[0], ErrFetchFailed)
	assert.Contains(t, batch.Failures()[0].Error(), "exceeds")

	data, err := batch.Handles()[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(defaultMaxSize), m.maxSize)
	assert.Equal(t, defaultTimeout, m.timeout)
}

func TestMaterialize_RespectsCaps(t *testing.T) {
	server := newImageServer(t, nil)
	m := newTestMaterializer(t, time.Second)

	var urls []string
	for i := 0; i < 15; i++ {
		urls = append(urls, fmt.Sprintf("%s/%d.jpg", server.URL, i))
	}

	t.Run("caller cap", func(t *testing.T) {
		batch := m.Materialize(context.Background(), urls, 3)
		defer batch.Release()
		assert.Len(t, batch.Handles(), 3)
	})

	t.Run("hard ceiling", func(t *testing.T) {
		batch := m.Materialize(context.Background(), urls, 100)
		defer batch.Release()
		assert.Len(t, batch.Handles(), MaxHandles)
	})

	t.Run("zero cap", func(t *testing.T) {
		batch := m.Materialize(context.Background(), urls, 0)
		defer batch.Release()
		assert.Empty(t, batch.Handles())
		assert.Empty(t, batch.Failures())
	})
}

func TestBatch_Release(t *testing.T) {
	server := newImageServer(t, nil)
	m := newTestMaterializer(t, time.Second)

	batch := m.Materialize(context.Background(), []string{server.URL + "/a.png", server.URL + "/b.webp"}, 2)
	require.Len(t, batch.Handles(), 2)
	for _, h := range batch.Handles() {
		_, err := os.Stat(h.Path)
		require.NoError(t, err)
	}

	batch.Release()
	batch.Release()

	for _, h := range batch.Handles() {
		_, err := os.Stat(h.Path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestMaterialize_CachesBytes(t *testing.T) {
	var hits atomic.Int32
	server := newImageServer(t, &hits)
	m := newTestMaterializer(t, time.Second)
	ref := server.URL + "/a.png"

	first := m.Materialize(context.Background(), []string{ref}, 1)
	defer first.Release()
	second := m.Materialize(context.Background(), []string{ref}, 1)
	defer second.Release()

	assert.Equal(t, int32(1), hits.Load())
	require.Len(t, first.Handles(), 1)
	require.Len(t, second.Handles(), 1)
	assert.NotEqual(t, first.Handles()[0].Path, second.Handles()[0].Path)
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/a.png?stp=1", ".png"},
		{"https://cdn.example/a.JPEG", ".jpeg"},
		{"https://cdn.example/a.webp", ".webp"},
		{"https://cdn.example/a", ".jpg"},
		{"https://cdn.example/a.exe", ".jpg"},
		{"://bad", ".jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, extension(tt.url))
		})
	}
}
