// Package prompt builds the three analysis tiers (account, post and comment)
// from stored documents and already-bounded image handles.
package prompt

import (
	"fmt"
	"strings"

	"github.com/steve-cardenas/snagent/internal/assets"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/model"
)

// Prompt is the payload of one completion call.
type Prompt struct {
	Text   string
	Assets []assets.Handle
}

// Account builds the account-level prompt. handles are capped at
// l.AccountImages.
func Account(acc model.Account, selectedPosts, stories int, handles []assets.Handle, l config.Limits) Prompt {
	return Prompt{
		Text: fmt.Sprintf(AccountTemplate,
			acc.Biography,
			acc.Followers,
			l.WindowDays,
			l.PostFloor,
			selectedPosts,
			stories,
			l.AccountSuggestions,
		),
		Assets: capHandles(handles, l.AccountImages),
	}
}

// Post builds the prompt for one selected post.
func Post(p model.Post, handles []assets.Handle, l config.Limits) Prompt {
	caption := noCaption
	if p.Caption != nil {
		caption = *p.Caption
	}
	return Prompt{
		Text:   fmt.Sprintf(PostTemplate, caption, p.Likes, p.CommentsCount, l.PostSuggestions),
		Assets: capHandles(handles, l.PostImages),
	}
}

// Comments builds the comment-level prompt from at most l.Comments texts.
// It returns false when there is nothing to analyze; the tier is then skipped.
func Comments(texts []string, l config.Limits) (Prompt, bool) {
	texts = texts[:min(len(texts), max(l.Comments, 0))]
	if len(texts) == 0 {
		return Prompt{}, false
	}

	var sb strings.Builder
	for i, text := range texts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(strings.ReplaceAll(text, "\n", " "))
	}
	return Prompt{Text: fmt.Sprintf(CommentsTemplate, sb.String())}, true
}

// AccountImageURLs flattens the image references of posts in post order and
// keeps the first n.
func AccountImageURLs(posts []model.Post, n int) []string {
	urls := []string{}
	for _, p := range posts {
		for _, u := range p.Images {
			if len(urls) >= n {
				return urls
			}
			urls = append(urls, u)
		}
	}
	return urls
}

// PostImageURLs returns the first n image references of p.
func PostImageURLs(p model.Post, n int) []string {
	return p.Images[:min(len(p.Images), max(n, 0))]
}

// CommentTexts flattens the comment texts of posts in post order and keeps
// the first n.
func CommentTexts(posts []model.Post, n int) []string {
	texts := []string{}
	for _, p := range posts {
		for _, c := range p.Comments {
			if len(texts) >= n {
				return texts
			}
			texts = append(texts, c.Text)
		}
	}
	return texts
}

func capHandles(handles []assets.Handle, n int) []assets.Handle {
	return handles[:min(len(handles), max(n, 0))]
}
