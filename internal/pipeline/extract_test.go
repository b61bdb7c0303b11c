package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steve-cardenas/snagent/internal/db"
	"github.com/steve-cardenas/snagent/internal/model"
	"github.com/steve-cardenas/snagent/internal/source"
)

func rawPost(id string, taken time.Time, images ...string) source.Post {
	p := source.Post{MediaID: id, Shortcode: "SC" + id, TakenAt: taken, Likes: 5, Comments: 1}
	if len(images) > 1 {
		p.Kind = source.KindCarousel
		p.CarouselURLs = images
	}
	if len(images) > 0 {
		p.DisplayURL = images[0]
	}
	return p
}

func TestExtract_PersistsDocuments(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, d := range []int{1, 3, 5, 8, 14} {
		env.source.posts = append(env.source.posts, rawPost(fmt.Sprintf("r%d", d), daysAgo(d)))
	}
	for i := 0; i < 20; i++ {
		env.source.posts = append(env.source.posts, rawPost(fmt.Sprintf("o%d", i), daysAgo(16+i)))
	}
	env.source.comments = map[string][]source.Comment{
		"r1": {{ID: "c1", Text: "love it", OwnerUsername: "fan1"}, {ID: "c2", Text: "nice"}, {ID: "c3", Text: "wow"}},
	}
	env.source.stories = []source.StoryItem{
		{MediaID: "s1", URL: "https://cdn.example/s1.jpg", TakenAt: now.Add(-2 * time.Hour)},
		{MediaID: "s2", IsVideo: true, URL: "https://cdn.example/s2.mp4", TakenAt: now.Add(-time.Hour)},
	}
	env.pipeline.cfg.Limits.Comments = 2

	summary, err := env.pipeline.Extract(ctx, "acme")
	require.NoError(t, err)

	assert.Empty(t, summary.Failures)
	require.NotNil(t, summary.Account)
	assert.Equal(t, "acme", summary.Account.ID)

	// five recent posts topped up to the floor of nine, then the walk stops
	require.Len(t, summary.Posts, 9)
	assert.Equal(t, "r1", summary.Posts[0].ID)
	assert.Equal(t, "o3", summary.Posts[8].ID)
	assert.Equal(t, 10, env.source.postsRead)

	assert.Len(t, summary.Posts[0].Comments, 2)
	assert.Equal(t, "love it", summary.Posts[0].Comments[0].Text)

	require.Len(t, summary.Stories, 2)
	assert.Equal(t, now.Add(22*time.Hour), summary.Stories[0].ExpiresAt)

	var account model.Account
	require.NoError(t, env.store.Get(ctx, "accounts", "acme", &account))
	assert.Equal(t, 1200, account.Followers)

	var posts []model.Post
	require.NoError(t, env.store.Find(ctx, "posts", db.Filter{"account_username": "acme"}, nil, &posts))
	assert.Len(t, posts, 9)

	var stories []model.Story
	require.NoError(t, env.store.Find(ctx, "stories", db.Filter{"account_username": "acme"}, nil, &stories))
	assert.Len(t, stories, 2)
	for _, s := range stories {
		assert.Nil(t, s.ViewCount)
		assert.NotNil(t, s.Interactions)
	}
}

func TestExtract_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.source.posts = []source.Post{rawPost("p1", daysAgo(1)), rawPost("p2", daysAgo(2))}

	_, err := env.pipeline.Extract(ctx, "acme")
	require.NoError(t, err)
	_, err = env.pipeline.Extract(ctx, "acme")
	require.NoError(t, err)

	var posts []model.Post
	require.NoError(t, env.store.Find(ctx, "posts", nil, nil, &posts))
	assert.Len(t, posts, 2)
}

func TestExtract_AccountMatchesPostOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.source.profile.Username = "acme"
	env.source.posts = []source.Post{rawPost("p1", daysAgo(1))}

	summary, err := env.pipeline.Extract(ctx, "Acme")
	require.NoError(t, err)
	require.NotNil(t, summary.Account)
	assert.Equal(t, "Acme", summary.Account.ID)
	require.Len(t, summary.Posts, 1)
	assert.Equal(t, summary.Account.ID, summary.Posts[0].AccountUsername)

	report, err := env.pipeline.Analyze(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, report.ContentLevel, 1)
	assert.Equal(t, "p1", report.ContentLevel[0].PostID)
}

func TestExtract_ProfileFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.source.profileErr = source.ErrNotFound
	env.source.posts = []source.Post{rawPost("p1", daysAgo(1))}

	summary, err := env.pipeline.Extract(context.Background(), "ghost")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, source.ErrNotFound)

	require.NotNil(t, summary)
	assert.Nil(t, summary.Account)
	assert.NotNil(t, summary.Posts)
	assert.Empty(t, summary.Posts)
	assert.NotNil(t, summary.Stories)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, StageProfile, summary.Failures[0].Stage)
	assert.Zero(t, env.source.postsRead)
}

func TestExtract_SubsectionFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.source.posts = []source.Post{rawPost("p1", daysAgo(1))}
	env.source.postsErr = source.ErrRateLimited
	env.source.comments = map[string][]source.Comment{"p1": {{ID: "c1", Text: "first"}}}
	env.source.commentsErr = map[string]error{"p1": source.ErrInvalidResponse}
	env.source.storiesErr = source.ErrAuthRequired

	summary, err := env.pipeline.Extract(ctx, "acme")
	require.NoError(t, err)

	require.Len(t, summary.Posts, 1)
	assert.Len(t, summary.Posts[0].Comments, 1)
	assert.NotNil(t, summary.Stories)
	assert.Empty(t, summary.Stories)

	require.Len(t, summary.Failures, 3)
	stages := []string{summary.Failures[0].Stage, summary.Failures[1].Stage, summary.Failures[2].Stage}
	assert.Equal(t, []string{StageComments, StagePosts, StageStories}, stages)
	assert.Contains(t, summary.Failures[1].Message, "rate limited")

	var posts []model.Post
	require.NoError(t, env.store.Find(ctx, "posts", nil, nil, &posts))
	assert.Len(t, posts, 1)
}

func TestExtract_PersistenceFailure(t *testing.T) {
	tests := []struct {
		collection string
		posts      int
	}{
		{"accounts", 0},
		{"posts", 0},
		{"stories", 1},
	}
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			env := newTestEnv(t, &failingStore{DocumentStore: newTestStore(t), collection: tt.collection})
			env.source.posts = []source.Post{rawPost("p1", daysAgo(1))}
			env.source.stories = []source.StoryItem{{MediaID: "s1", TakenAt: now}}

			summary, err := env.pipeline.Extract(context.Background(), "acme")

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPersistenceFailed)
			assert.ErrorIs(t, err, errDiskFull)
			assert.Len(t, summary.Posts, tt.posts)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env.source.postsErr = context.Canceled

	_, err := env.pipeline.Extract(ctx, "acme")
	assert.ErrorIs(t, err, context.Canceled)
}
