package normalize

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steve-cardenas/snagent/internal/model"
	"github.com/steve-cardenas/snagent/internal/source"
)

var extractedAt = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func TestAccount(t *testing.T) {
	raw := source.Profile{
		UserID:        "4242",
		Username:      "acme",
		FullName:      "Acme Co",
		Biography:     "We make things",
		ProfilePicURL: "https://cdn.example/hd.jpg",
		ExternalURL:   "https://acme.example",
		Followers:     1200,
		Followees:     80,
		IsVerified:    true,
	}

	acc := Account(raw, "acme", extractedAt)

	assert.Equal(t, "acme", acc.ID)
	assert.Equal(t, "acme", acc.Username)
	assert.Equal(t, "We make things", acc.Biography)
	assert.Equal(t, 1200, acc.Followers)
	assert.Equal(t, 80, acc.Followees)
	assert.True(t, acc.IsVerified)
	assert.False(t, acc.IsPrivate)
	assert.Equal(t, extractedAt, acc.ExtractedAt)
}

func TestAccount_KeyedByRequestedUsername(t *testing.T) {
	acc := Account(source.Profile{UserID: "4242", Username: "acme"}, "Acme", extractedAt)
	assert.Equal(t, "Acme", acc.ID)
	assert.Equal(t, "Acme", acc.Username)

	acc = Account(source.Profile{UserID: "4242"}, "acme", extractedAt)
	assert.Equal(t, "acme", acc.ID)
}

func TestPost(t *testing.T) {
	caption := "hello"
	taken := time.Date(2026, 3, 18, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name       string
		raw        source.Post
		maxImages  int
		wantType   model.MediaType
		wantImages []string
	}{
		{
			name:       "single image",
			raw:        source.Post{MediaID: "1", Shortcode: "AAA", Kind: source.KindImage, DisplayURL: "https://cdn.example/1.jpg"},
			maxImages:  3,
			wantType:   model.MediaImage,
			wantImages: []string{"https://cdn.example/1.jpg"},
		},
		{
			name:       "video uses thumbnail",
			raw:        source.Post{MediaID: "2", Shortcode: "BBB", Kind: source.KindVideo, DisplayURL: "https://cdn.example/thumb.jpg"},
			maxImages:  3,
			wantType:   model.MediaVideo,
			wantImages: []string{"https://cdn.example/thumb.jpg"},
		},
		{
			name: "carousel capped",
			raw: source.Post{MediaID: "3", Shortcode: "CCC", Kind: source.KindCarousel, DisplayURL: "https://cdn.example/a.jpg",
				CarouselURLs: []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg", "https://cdn.example/c.jpg", "https://cdn.example/d.jpg"}},
			maxImages:  3,
			wantType:   model.MediaImage,
			wantImages: []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg", "https://cdn.example/c.jpg"},
		},
		{
			name:       "no display url",
			raw:        source.Post{MediaID: "4", Shortcode: "DDD"},
			maxImages:  3,
			wantType:   model.MediaImage,
			wantImages: []string{},
		},
		{
			name:       "zero cap",
			raw:        source.Post{MediaID: "5", Shortcode: "EEE", DisplayURL: "https://cdn.example/5.jpg"},
			maxImages:  0,
			wantType:   model.MediaImage,
			wantImages: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.raw.Caption = &caption
			tt.raw.TakenAt = taken
			tt.raw.Likes = 10
			tt.raw.Comments = 4

			p := Post(tt.raw, "acme", tt.maxImages, extractedAt)

			assert.Equal(t, tt.raw.MediaID, p.ID)
			assert.Equal(t, "acme", p.AccountUsername)
			assert.Equal(t, "https://www.instagram.com/p/"+tt.raw.Shortcode+"/", p.URL)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.wantImages, p.Images)
			assert.Equal(t, time.UTC, p.Date.Location())
			assert.True(t, p.Date.Equal(taken))
			assert.Equal(t, 10, p.Likes)
			assert.Equal(t, 4, p.CommentsCount)
			require.NotNil(t, p.Comments)
			assert.Empty(t, p.Comments)
			require.NotNil(t, p.Caption)
			assert.Equal(t, "hello", *p.Caption)
		})
	}
}

func TestPost_CaptionIsCopied(t *testing.T) {
	caption := "original"
	p := Post(source.Post{MediaID: "1", Caption: &caption}, "acme", 3, extractedAt)

	caption = "changed"
	assert.Equal(t, "original", *p.Caption)
}

func TestPost_NilCaption(t *testing.T) {
	p := Post(source.Post{MediaID: "1"}, "acme", 3, extractedAt)
	assert.Nil(t, p.Caption)
}

func TestPost_Idempotent(t *testing.T) {
	caption := "same"
	raw := source.Post{
		MediaID: "9", Shortcode: "XYZ", Kind: source.KindCarousel, Caption: &caption,
		CarouselURLs: []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"},
		TakenAt:      extractedAt.Add(-time.Hour),
	}

	first, err := json.Marshal(Post(raw, "acme", 3, extractedAt))
	require.NoError(t, err)
	second, err := json.Marshal(Post(raw, "acme", 3, extractedAt))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAppendComment(t *testing.T) {
	p := Post(source.Post{MediaID: "1"}, "acme", 3, extractedAt)

	for i := 0; i < 5; i++ {
		added := AppendComment(&p, source.Comment{
			ID:            fmt.Sprint(i),
			Text:          fmt.Sprintf("comment %d", i),
			OwnerUsername: "fan",
			CreatedAt:     extractedAt,
		}, 3)
		assert.Equal(t, i < 3, added, "comment %d", i)
	}

	require.Len(t, p.Comments, 3)
	assert.Equal(t, "comment 0", p.Comments[0].Text)
	assert.Equal(t, "comment 2", p.Comments[2].Text)
	assert.Equal(t, "fan", p.Comments[0].Author)
}

func TestAppendComment_ZeroCap(t *testing.T) {
	p := Post(source.Post{MediaID: "1"}, "acme", 3, extractedAt)
	assert.False(t, AppendComment(&p, source.Comment{ID: "1", Text: "hi"}, 0))
	assert.Empty(t, p.Comments)
}

func TestStory(t *testing.T) {
	published := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)

	t.Run("image", func(t *testing.T) {
		s := Story(source.StoryItem{MediaID: "7", URL: "https://cdn.example/s.jpg", TakenAt: published}, "acme", extractedAt)

		assert.Equal(t, "7", s.ID)
		assert.Equal(t, "acme", s.AccountUsername)
		assert.Equal(t, model.MediaImage, s.MediaType)
		assert.Equal(t, published, s.PublishedAt)
		assert.Equal(t, published.Add(24*time.Hour), s.ExpiresAt)
		assert.Nil(t, s.ViewCount)
		require.NotNil(t, s.Interactions)
		assert.Empty(t, s.Interactions)
		assert.Equal(t, extractedAt, s.ExtractedAt)
	})

	t.Run("video", func(t *testing.T) {
		s := Story(source.StoryItem{MediaID: "8", IsVideo: true, TakenAt: published}, "acme", extractedAt)
		assert.Equal(t, model.MediaVideo, s.MediaType)
	})

	t.Run("unknown fields are explicit", func(t *testing.T) {
		s := Story(source.StoryItem{MediaID: "9", TakenAt: published}, "acme", extractedAt)
		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"view_count":null`)
		assert.Contains(t, string(data), `"interactions":[]`)
	})
}
