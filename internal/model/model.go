// Package model defines the documents persisted by the pipeline.
//
// Every struct carries identical json and bson tags so the sqlite, PostgreSQL
// and MongoDB backends all store the same field names.
package model

import "time"

// MediaType is the kind of media a post or story carries.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Account is a scraped profile, keyed by username.
type Account struct {
	ID            string    `json:"_id" bson:"_id"`
	Username      string    `json:"username" bson:"username"`
	FullName      string    `json:"full_name" bson:"full_name"`
	Biography     string    `json:"biography" bson:"biography"`
	ProfilePicURL string    `json:"profile_pic_url" bson:"profile_pic_url"`
	Followers     int       `json:"followers" bson:"followers"`
	Followees     int       `json:"followees" bson:"followees"`
	IsVerified    bool      `json:"is_verified" bson:"is_verified"`
	IsPrivate     bool      `json:"is_private" bson:"is_private"`
	ExternalURL   string    `json:"external_url" bson:"external_url"`
	ExtractedAt   time.Time `json:"account_extraction_date" bson:"account_extraction_date"`
}

// Comment is embedded in a Post and has no lifecycle of its own.
type Comment struct {
	ID     string    `json:"id" bson:"id"`
	Text   string    `json:"text" bson:"text"`
	Author string    `json:"author" bson:"author"`
	Date   time.Time `json:"date" bson:"date"`
}

// Post is a published feed item, keyed by the platform media id.
type Post struct {
	ID              string    `json:"_id" bson:"_id"`
	AccountUsername string    `json:"account_username" bson:"account_username"`
	URL             string    `json:"url" bson:"url"`
	Type            MediaType `json:"type" bson:"type"`
	Caption         *string   `json:"caption" bson:"caption"`
	Date            time.Time `json:"date" bson:"date"`
	Likes           int       `json:"likes" bson:"likes"`
	CommentsCount   int       `json:"comments_count" bson:"comments_count"`
	Comments        []Comment `json:"comments" bson:"comments"`
	Images          []string  `json:"images" bson:"images"`
	ExtractedAt     time.Time `json:"post_extraction_date" bson:"post_extraction_date"`
}

// Story is an ephemeral media item. ViewCount and Interactions are not
// observable by scraping and are stored as null and empty respectively.
type Story struct {
	ID              string    `json:"_id" bson:"_id"`
	AccountUsername string    `json:"account_username" bson:"account_username"`
	MediaType       MediaType `json:"media_type" bson:"media_type"`
	MediaURL        string    `json:"media_url" bson:"media_url"`
	PublishedAt     time.Time `json:"publication_date" bson:"publication_date"`
	ExpiresAt       time.Time `json:"expiration_date" bson:"expiration_date"`
	ViewCount       *int      `json:"view_count" bson:"view_count"`
	Interactions    []string  `json:"interactions" bson:"interactions"`
	ExtractedAt     time.Time `json:"story_extraction_date" bson:"story_extraction_date"`
}

// ContentFinding is the post-level result for one selected post.
type ContentFinding struct {
	Type       string `json:"type" bson:"type"`
	PostID     string `json:"id" bson:"id"`
	Suggestion string `json:"suggestion" bson:"suggestion"`
	Failed     bool   `json:"failed" bson:"failed"`
}

// AnalysisReport holds the latest suggestions for one account.
type AnalysisReport struct {
	ID           string           `json:"_id" bson:"_id"`
	Username     string           `json:"username" bson:"username"`
	AnalyzedAt   time.Time        `json:"analysis_date" bson:"analysis_date"`
	AccountLevel *string          `json:"account_level" bson:"account_level"`
	ContentLevel []ContentFinding `json:"content_level" bson:"content_level"`
	CommentLevel *string          `json:"comment_level" bson:"comment_level"`
}

// Failure records a recovered or fatal failure inside an extraction run.
type Failure struct {
	Stage   string `json:"stage"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// ExtractionSummary is what one extraction pass produced. Failed subsections
// are empty collections plus an entry in Failures, never missing fields.
type ExtractionSummary struct {
	Username    string    `json:"username"`
	ExtractedAt time.Time `json:"extracted_at"`
	Account     *Account  `json:"account"`
	Posts       []Post    `json:"posts"`
	Stories     []Story   `json:"stories"`
	Failures    []Failure `json:"failures"`
}

// NewExtractionSummary returns a summary with all collections initialised.
func NewExtractionSummary(username string, at time.Time) *ExtractionSummary {
	return &ExtractionSummary{
		Username:    username,
		ExtractedAt: at,
		Posts:       []Post{},
		Stories:     []Story{},
		Failures:    []Failure{},
	}
}

// Fail appends a failure entry.
func (s *ExtractionSummary) Fail(stage, target string, err error) {
	s.Failures = append(s.Failures, Failure{Stage: stage, Target: target, Message: err.Error()})
}
