package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steve-cardenas/snagent/internal/assets"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/db"
	"github.com/steve-cardenas/snagent/internal/source"
)

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.AddDate(0, 0, -d)
}

// fakeSource serves canned records. Listing errors are yielded after the
// canned items.
type fakeSource struct {
	profile    source.Profile
	profileErr error

	posts     []source.Post
	postsErr  error
	postsRead int

	comments    map[string][]source.Comment
	commentsErr map[string]error

	stories    []source.StoryItem
	storiesErr error
}

func (f *fakeSource) FetchProfile(ctx context.Context, username string) (source.Profile, error) {
	if f.profileErr != nil {
		return source.Profile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeSource) ListPosts(ctx context.Context, username string) iter.Seq2[source.Post, error] {
	return func(yield func(source.Post, error) bool) {
		for _, p := range f.posts {
			f.postsRead++
			if !yield(p, nil) {
				return
			}
		}
		if f.postsErr != nil {
			yield(source.Post{}, f.postsErr)
		}
	}
}

func (f *fakeSource) ListComments(ctx context.Context, mediaID string) iter.Seq2[source.Comment, error] {
	return func(yield func(source.Comment, error) bool) {
		for _, c := range f.comments[mediaID] {
			if !yield(c, nil) {
				return
			}
		}
		if err := f.commentsErr[mediaID]; err != nil {
			yield(source.Comment{}, err)
		}
	}
}

func (f *fakeSource) ListActiveStories(ctx context.Context, userID string) iter.Seq2[source.StoryItem, error] {
	return func(yield func(source.StoryItem, error) bool) {
		for _, s := range f.stories {
			if !yield(s, nil) {
				return
			}
		}
		if f.storiesErr != nil {
			yield(source.StoryItem{}, f.storiesErr)
		}
	}
}

type completionCall struct {
	text   string
	images int
}

// fakeCompleter answers with a fixed suggestion unless fail returns an error
// for the prompt text.
type fakeCompleter struct {
	fail  func(text string) error
	calls []completionCall
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Generate(ctx context.Context, text string, images []assets.Handle) (string, error) {
	f.calls = append(f.calls, completionCall{text: text, images: len(images)})
	if f.fail != nil {
		if err := f.fail(text); err != nil {
			return "", err
		}
	}
	first, _, _ := strings.Cut(text, "\n")
	return "suggestion for " + first, nil
}

func (f *fakeCompleter) callsWithPrefix(prefix string) []completionCall {
	var out []completionCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.text, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// failingStore fails every upsert into one collection.
type failingStore struct {
	db.DocumentStore
	collection string
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Upsert(ctx context.Context, collection, id string, doc any) error {
	if collection == s.collection {
		return errDiskFull
	}
	return s.DocumentStore.Upsert(ctx, collection, id, doc)
}

func testConfig() *config.Config {
	return &config.Config{
		Collections: config.Collections{
			Accounts: "accounts",
			Posts:    "posts",
			Stories:  "stories",
			Analysis: "analysis",
		},
		Limits: config.DefaultLimits(),
	}
}

func newTestStore(t *testing.T) *db.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := db.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { store.Close() })
	return store
}

// newImageServer serves a tiny PNG for every path except /missing*.
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	}))
	t.Cleanup(server.Close)
	return server
}

type testEnv struct {
	pipeline  *Pipeline
	store     db.DocumentStore
	source    *fakeSource
	completer *fakeCompleter
	assetDir  string
	images    *httptest.Server
}

func newTestEnv(t *testing.T, store db.DocumentStore) *testEnv {
	t.Helper()
	if store == nil {
		store = newTestStore(t)
	}

	assetDir := t.TempDir()
	materializer, err := assets.New(assets.Config{Dir: assetDir, Timeout: time.Second})
	require.NoError(t, err)

	env := &testEnv{
		store:     store,
		source:    &fakeSource{profile: source.Profile{UserID: "4242", Username: "acme", Biography: "We make things", Followers: 1200}},
		completer: &fakeCompleter{},
		assetDir:  assetDir,
		images:    newImageServer(t),
	}
	env.pipeline = New(testConfig(), store, env.source, env.completer, materializer)
	env.pipeline.now = func() time.Time { return now }
	return env
}

func (e *testEnv) imageURL(name string) string {
	return fmt.Sprintf("%s/%s", e.images.URL, name)
}
