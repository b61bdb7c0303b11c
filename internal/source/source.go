// Package source reads profiles, posts, comments and stories from a social
// platform. Listings are lazy and best-effort: each iterator yields at most
// one error and stops.
package source

import (
	"context"
	"errors"
	"iter"
	"time"
)

var (
	ErrNotFound        = errors.New("source: not found")
	ErrRateLimited     = errors.New("source: rate limited")
	ErrAuthRequired    = errors.New("source: authentication required")
	ErrInvalidResponse = errors.New("source: invalid response")
)

// MediaKind distinguishes single-media posts from carousels.
type MediaKind int

const (
	KindImage MediaKind = iota
	KindVideo
	KindCarousel
)

// Profile is a raw account record.
type Profile struct {
	UserID        string
	Username      string
	FullName      string
	Biography     string
	ProfilePicURL string
	ExternalURL   string
	Followers     int
	Followees     int
	IsVerified    bool
	IsPrivate     bool
}

// Post is a raw feed item. DisplayURL is the image (or video thumbnail) of a
// single-media post; CarouselURLs holds the child images of a carousel.
type Post struct {
	MediaID      string
	Shortcode    string
	Kind         MediaKind
	DisplayURL   string
	CarouselURLs []string
	Caption      *string
	TakenAt      time.Time
	Likes        int
	Comments     int
}

// Comment is a raw comment on a post.
type Comment struct {
	ID            string
	Text          string
	OwnerUsername string
	CreatedAt     time.Time
}

// StoryItem is a raw story media item.
type StoryItem struct {
	MediaID string
	IsVideo bool
	URL     string
	TakenAt time.Time
}

// Source is the contract the extraction pass consumes.
type Source interface {
	// FetchProfile fails with ErrNotFound or ErrRateLimited among others.
	FetchProfile(ctx context.Context, username string) (Profile, error)

	// ListPosts yields posts newest first, pinned posts included at their date.
	ListPosts(ctx context.Context, username string) iter.Seq2[Post, error]

	// ListComments yields comments of one post in source order.
	ListComments(ctx context.Context, mediaID string) iter.Seq2[Comment, error]

	// ListActiveStories yields the currently visible stories of a user.
	ListActiveStories(ctx context.Context, userID string) iter.Seq2[StoryItem, error]
}
