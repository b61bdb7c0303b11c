package source

import (
	"encoding/json"
	"time"
)

// Raw Instagram web API payloads (match the JSON exactly).

type profileInfoResponse struct {
	Data struct {
		User *rawUser `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

type rawUser struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	FullName        string   `json:"full_name"`
	Biography       string   `json:"biography"`
	ProfilePicURL   string   `json:"profile_pic_url"`
	ProfilePicURLHD string   `json:"profile_pic_url_hd"`
	ExternalURL     string   `json:"external_url"`
	IsVerified      bool     `json:"is_verified"`
	IsPrivate       bool     `json:"is_private"`
	FollowedBy      rawCount `json:"edge_followed_by"`
	Follow          rawCount `json:"edge_follow"`
}

type rawCount struct {
	Count int `json:"count"`
}

type feedResponse struct {
	Items         []rawMedia `json:"items"`
	MoreAvailable bool       `json:"more_available"`
	NextMaxID     string     `json:"next_max_id"`
	Status        string     `json:"status"`
}

// Instagram media_type values.
const (
	mediaTypeImage    = 1
	mediaTypeVideo    = 2
	mediaTypeCarousel = 8
)

type rawMedia struct {
	PK                    json.Number       `json:"pk"`
	Code                  string            `json:"code"`
	MediaType             int               `json:"media_type"`
	TakenAt               int64             `json:"taken_at"`
	LikeCount             int               `json:"like_count"`
	CommentCount          int               `json:"comment_count"`
	Caption               *rawCaption       `json:"caption"`
	ImageVersions         rawImageVersions  `json:"image_versions2"`
	VideoVersions         []rawCandidate    `json:"video_versions"`
	CarouselMedia         []rawMedia        `json:"carousel_media"`
	TimelinePinnedUserIDs []json.RawMessage `json:"timeline_pinned_user_ids"` // set on pinned feed items
}

type rawCaption struct {
	Text string `json:"text"`
}

type rawImageVersions struct {
	Candidates []rawCandidate `json:"candidates"`
}

type rawCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type commentsResponse struct {
	Comments  []rawComment `json:"comments"`
	NextMinID string       `json:"next_min_id"`
	Status    string       `json:"status"`
}

type rawComment struct {
	PK        json.Number `json:"pk"`
	Text      string      `json:"text"`
	CreatedAt int64       `json:"created_at"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
}

type reelsMediaResponse struct {
	Reels  map[string]rawReel `json:"reels"`
	Status string             `json:"status"`
}

type rawReel struct {
	Items []rawMedia `json:"items"`
}

// bestCandidate returns the widest candidate URL, or "" when there is none.
func bestCandidate(cands []rawCandidate) string {
	best := -1
	for i, c := range cands {
		if best == -1 || c.Width > cands[best].Width {
			best = i
		}
	}
	if best == -1 {
		return ""
	}
	return cands[best].URL
}

// parseProfile converts the raw user to the public Profile type.
func parseProfile(u rawUser) Profile {
	pic := u.ProfilePicURLHD
	if pic == "" {
		pic = u.ProfilePicURL
	}
	return Profile{
		UserID:        u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		Biography:     u.Biography,
		ProfilePicURL: pic,
		ExternalURL:   u.ExternalURL,
		Followers:     u.FollowedBy.Count,
		Followees:     u.Follow.Count,
		IsVerified:    u.IsVerified,
		IsPrivate:     u.IsPrivate,
	}
}

// parsePost converts a raw feed item to the public Post type.
func parsePost(m rawMedia) Post {
	p := Post{
		MediaID:    m.PK.String(),
		Shortcode:  m.Code,
		DisplayURL: bestCandidate(m.ImageVersions.Candidates),
		TakenAt:    time.Unix(m.TakenAt, 0).UTC(),
		Likes:      m.LikeCount,
		Comments:   m.CommentCount,
	}
	if m.Caption != nil {
		text := m.Caption.Text
		p.Caption = &text
	}

	switch m.MediaType {
	case mediaTypeVideo:
		p.Kind = KindVideo
	case mediaTypeCarousel:
		p.Kind = KindCarousel
		for _, child := range m.CarouselMedia {
			if u := bestCandidate(child.ImageVersions.Candidates); u != "" {
				p.CarouselURLs = append(p.CarouselURLs, u)
			}
		}
		if p.DisplayURL == "" && len(p.CarouselURLs) > 0 {
			p.DisplayURL = p.CarouselURLs[0]
		}
	default:
		p.Kind = KindImage
	}
	return p
}

// parseComment converts a raw comment to the public Comment type.
func parseComment(c rawComment) Comment {
	return Comment{
		ID:            c.PK.String(),
		Text:          c.Text,
		OwnerUsername: c.User.Username,
		CreatedAt:     time.Unix(c.CreatedAt, 0).UTC(),
	}
}

// parseStoryItem converts a raw reel item to the public StoryItem type.
func parseStoryItem(m rawMedia) StoryItem {
	item := StoryItem{
		MediaID: m.PK.String(),
		IsVideo: m.MediaType == mediaTypeVideo,
		TakenAt: time.Unix(m.TakenAt, 0).UTC(),
	}
	if item.IsVideo {
		item.URL = bestCandidate(m.VideoVersions)
	}
	if item.URL == "" {
		item.URL = bestCandidate(m.ImageVersions.Candidates)
	}
	return item
}
