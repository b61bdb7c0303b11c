// Package normalize maps raw source records into the persisted document
// shapes. Every function is pure: same input and time, same document.
package normalize

import (
	"fmt"
	"time"

	"github.com/steve-cardenas/snagent/internal/model"
	"github.com/steve-cardenas/snagent/internal/source"
)

// StoryLifetime is how long a story stays visible after publication.
const StoryLifetime = 24 * time.Hour

const postURLFormat = "https://www.instagram.com/p/%s/"

// Account maps a raw profile fetched for username. The requested username,
// not the one echoed by the source, is the document id, so posts stored under
// the same username always reference it.
func Account(raw source.Profile, username string, at time.Time) model.Account {
	return model.Account{
		ID:            username,
		Username:      username,
		FullName:      raw.FullName,
		Biography:     raw.Biography,
		ProfilePicURL: raw.ProfilePicURL,
		Followers:     raw.Followers,
		Followees:     raw.Followees,
		IsVerified:    raw.IsVerified,
		IsPrivate:     raw.IsPrivate,
		ExternalURL:   raw.ExternalURL,
		ExtractedAt:   at.UTC(),
	}
}

// Post maps a raw feed item owned by username. Carousels contribute their
// child images, single posts their display image; at most maxImages are kept.
// Comments start empty and are filled with AppendComment.
func Post(raw source.Post, username string, maxImages int, at time.Time) model.Post {
	mediaType := model.MediaImage
	if raw.Kind == source.KindVideo {
		mediaType = model.MediaVideo
	}

	var caption *string
	if raw.Caption != nil {
		c := *raw.Caption
		caption = &c
	}

	return model.Post{
		ID:              raw.MediaID,
		AccountUsername: username,
		URL:             PostURL(raw.Shortcode),
		Type:            mediaType,
		Caption:         caption,
		Date:            raw.TakenAt.UTC(),
		Likes:           raw.Likes,
		CommentsCount:   raw.Comments,
		Comments:        []model.Comment{},
		Images:          images(raw, maxImages),
		ExtractedAt:     at.UTC(),
	}
}

// PostURL returns the public permalink of a post.
func PostURL(shortcode string) string {
	return fmt.Sprintf(postURLFormat, shortcode)
}

func images(raw source.Post, maxImages int) []string {
	var urls []string
	if raw.Kind == source.KindCarousel {
		urls = raw.CarouselURLs
	} else if raw.DisplayURL != "" {
		urls = []string{raw.DisplayURL}
	}

	out := make([]string, 0, min(len(urls), max(maxImages, 0)))
	for _, u := range urls {
		if len(out) >= maxImages {
			break
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// AppendComment embeds raw into post unless the post already holds maxComments.
// It reports whether the comment was added; false means the cap is reached and
// the caller should stop reading comments for this post.
func AppendComment(post *model.Post, raw source.Comment, maxComments int) bool {
	if len(post.Comments) >= maxComments {
		return false
	}
	post.Comments = append(post.Comments, Comment(raw))
	return true
}

// Comment maps a raw comment into its embedded shape.
func Comment(raw source.Comment) model.Comment {
	return model.Comment{
		ID:     raw.ID,
		Text:   raw.Text,
		Author: raw.OwnerUsername,
		Date:   raw.CreatedAt.UTC(),
	}
}

// Story maps a raw story item. View count and interactions are not observable
// and are stored as unknown (nil) and empty.
func Story(raw source.StoryItem, username string, at time.Time) model.Story {
	mediaType := model.MediaImage
	if raw.IsVideo {
		mediaType = model.MediaVideo
	}
	published := raw.TakenAt.UTC()

	return model.Story{
		ID:              raw.MediaID,
		AccountUsername: username,
		MediaType:       mediaType,
		MediaURL:        raw.URL,
		PublishedAt:     published,
		ExpiresAt:       published.Add(StoryLifetime),
		ViewCount:       nil,
		Interactions:    []string{},
		ExtractedAt:     at.UTC(),
	}
}
