package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

const (
	instagramBaseURL   = "https://www.instagram.com"
	instagramAppID     = "936619743392459"
	defaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultPageSize    = 12
	defaultMaxBodySize = 8 << 20
)

// Instagram reads public account data from the Instagram web API.
type Instagram struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	sessionID  string

	delay   time.Duration
	last    time.Time
	throtMu sync.Mutex
}

// InstagramConfig holds configuration for the Instagram source.
type InstagramConfig struct {
	BaseURL   string        // defaults to https://www.instagram.com
	SessionID string        // sessionid cookie; required for stories
	Proxy     string        // http, https or socks5 URL
	Delay     time.Duration // minimum delay between requests
	Timeout   time.Duration
}

var _ Source = (*Instagram)(nil)

// NewInstagram creates a new Instagram source.
func NewInstagram(cfg InstagramConfig) (*Instagram, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = instagramBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport, err := newTransport(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	return &Instagram{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL:   baseURL,
		userAgent: defaultUserAgent,
		sessionID: cfg.SessionID,
		delay:     cfg.Delay,
	}, nil
}

// newTransport returns a pooled transport, routed through proxyAddr when set.
func newTransport(proxyAddr string) (*http.Transport, error) {
	base := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	if proxyAddr == "" {
		return base, nil
	}

	u, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
	case "socks5":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy: %w", err)
		}
		dc, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5: context dialer not supported")
		}
		base.DialContext = dc.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}
	return base, nil
}

// FetchProfile returns the profile of username.
func (ig *Instagram) FetchProfile(ctx context.Context, username string) (Profile, error) {
	if username == "" {
		return Profile{}, fmt.Errorf("fetch profile: username is required")
	}

	q := url.Values{"username": {username}}
	var resp profileInfoResponse
	if err := ig.getJSON(ctx, "/api/v1/users/web_profile_info/?"+q.Encode(), &resp); err != nil {
		return Profile{}, fmt.Errorf("fetch profile %q: %w", username, err)
	}
	if resp.Data.User == nil || resp.Data.User.ID == "" {
		return Profile{}, fmt.Errorf("fetch profile %q: %w", username, ErrNotFound)
	}

	slog.Debug("fetched Instagram profile",
		"username", username,
		"user_id", resp.Data.User.ID,
	)
	return parseProfile(*resp.Data.User), nil
}

// ListPosts yields the feed of username, newest first, following next_max_id.
// The feed lists pinned posts first whatever their age, so they are held back
// and yielded once the walk reaches their date.
func (ig *Instagram) ListPosts(ctx context.Context, username string) iter.Seq2[Post, error] {
	return func(yield func(Post, error) bool) {
		var pinned []Post

		// release yields the held pinned posts newer than t, all of them when t is zero.
		release := func(t time.Time) bool {
			for len(pinned) > 0 && (t.IsZero() || pinned[0].TakenAt.After(t)) {
				p := pinned[0]
				pinned = pinned[1:]
				if !yield(p, nil) {
					return false
				}
			}
			return true
		}

		maxID := ""
		for {
			q := url.Values{"count": {fmt.Sprint(defaultPageSize)}}
			if maxID != "" {
				q.Set("max_id", maxID)
			}
			path := "/api/v1/feed/user/" + url.PathEscape(username) + "/username/?" + q.Encode()

			var page feedResponse
			if err := ig.getJSON(ctx, path, &page); err != nil {
				yield(Post{}, fmt.Errorf("list posts %q: %w", username, err))
				return
			}
			for _, item := range page.Items {
				post := parsePost(item)
				if len(item.TimelinePinnedUserIDs) > 0 {
					pinned = append(pinned, post)
					slices.SortStableFunc(pinned, func(a, b Post) int {
						return b.TakenAt.Compare(a.TakenAt)
					})
					continue
				}
				if !release(post.TakenAt) || !yield(post, nil) {
					return
				}
			}
			// a repeated cursor would loop forever
			if !page.MoreAvailable || page.NextMaxID == "" || page.NextMaxID == maxID {
				release(time.Time{})
				return
			}
			maxID = page.NextMaxID
		}
	}
}

// ListComments yields the comments of a post, following next_min_id.
func (ig *Instagram) ListComments(ctx context.Context, mediaID string) iter.Seq2[Comment, error] {
	return func(yield func(Comment, error) bool) {
		minID := ""
		for {
			q := url.Values{"can_support_threading": {"true"}, "permalink_enabled": {"false"}}
			if minID != "" {
				q.Set("min_id", minID)
			}
			path := "/api/v1/media/" + url.PathEscape(mediaID) + "/comments/?" + q.Encode()

			var page commentsResponse
			if err := ig.getJSON(ctx, path, &page); err != nil {
				yield(Comment{}, fmt.Errorf("list comments %s: %w", mediaID, err))
				return
			}
			for _, c := range page.Comments {
				if !yield(parseComment(c), nil) {
					return
				}
			}
			if page.NextMinID == "" || page.NextMinID == minID {
				return
			}
			minID = page.NextMinID
		}
	}
}

// ListActiveStories yields the current stories of userID. Stories are only
// served to logged-in sessions.
func (ig *Instagram) ListActiveStories(ctx context.Context, userID string) iter.Seq2[StoryItem, error] {
	return func(yield func(StoryItem, error) bool) {
		if ig.sessionID == "" {
			yield(StoryItem{}, fmt.Errorf("list stories %s: %w", userID, ErrAuthRequired))
			return
		}

		q := url.Values{"reel_ids": {userID}}
		var resp reelsMediaResponse
		if err := ig.getJSON(ctx, "/api/v1/feed/reels_media/?"+q.Encode(), &resp); err != nil {
			yield(StoryItem{}, fmt.Errorf("list stories %s: %w", userID, err))
			return
		}
		for _, item := range resp.Reels[userID].Items {
			if !yield(parseStoryItem(item), nil) {
				return
			}
		}
	}
}

// getJSON issues a throttled GET against the API and decodes the body into v.
func (ig *Instagram) getJSON(ctx context.Context, path string, v any) error {
	if err := ig.throttle(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", ig.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", ig.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-IG-App-ID", instagramAppID)
	req.Header.Set("Referer", instagramBaseURL+"/")
	if ig.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: ig.sessionID})
	}

	resp, err := ig.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthRequired
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, defaultMaxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// throttle waits if needed to enforce the min delay plus jitter between
// requests. It returns early with the context error when ctx is done.
func (ig *Instagram) throttle(ctx context.Context) error {
	ig.throtMu.Lock()
	defer ig.throtMu.Unlock()

	if ig.delay <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int64N(int64(ig.delay/2) + 1))
	if wait := ig.delay + jitter - time.Since(ig.last); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	ig.last = time.Now()
	return nil
}
