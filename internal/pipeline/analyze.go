package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steve-cardenas/snagent/internal/db"
	"github.com/steve-cardenas/snagent/internal/model"
	"github.com/steve-cardenas/snagent/internal/prompt"
	"github.com/steve-cardenas/snagent/internal/window"
)

// Analyze builds the three-tier report for username from stored documents
// and upserts it.
//
// Without a stored account it returns an empty report and ErrNoData and
// persists nothing. A failed completion becomes an error marker in its tier
// and never stops the other tiers. A failed upsert returns ErrPersistenceFailed.
func (p *Pipeline) Analyze(ctx context.Context, username string) (*model.AnalysisReport, error) {
	at := p.now().UTC()
	report := newReport(username, at)
	cols := p.cfg.Collections
	l := p.cfg.Limits

	if p.completer == nil {
		return report, fmt.Errorf("%w: no completion service configured", ErrCompletionFailed)
	}

	slog.Info("starting analysis", "username", username, "completer", p.completer.Name())

	var account model.Account
	if err := p.store.Get(ctx, cols.Accounts, username, &account); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			slog.Warn("no stored account, skipping analysis", "username", username)
			return report, fmt.Errorf("%w: account %s", ErrNoData, username)
		}
		return report, fmt.Errorf("%w: load account: %w", ErrPersistenceFailed, err)
	}

	var posts []model.Post
	byOwner := db.Filter{"account_username": username}
	if err := p.store.Find(ctx, cols.Posts, byOwner, &db.Sort{Field: "date", Desc: true}, &posts); err != nil {
		return report, fmt.Errorf("%w: load posts: %w", ErrPersistenceFailed, err)
	}
	var stories []model.Story
	if err := p.store.Find(ctx, cols.Stories, byOwner, nil, &stories); err != nil {
		return report, fmt.Errorf("%w: load stories: %w", ErrPersistenceFailed, err)
	}

	selected := window.Select(posts, at, l.WindowDays, l.PostFloor)
	slog.Debug("selected posts",
		"username", username,
		"stored", len(posts),
		"selected", len(selected),
		"stories", len(stories),
	)

	accountLevel := p.accountTier(ctx, account, selected, len(stories))
	report.AccountLevel = &accountLevel

	for _, post := range selected {
		report.ContentLevel = append(report.ContentLevel, p.postTier(ctx, post))
	}

	if pr, ok := prompt.Comments(prompt.CommentTexts(selected, l.Comments), l); ok {
		text, _ := p.generate(ctx, "comments", pr)
		report.CommentLevel = &text
	}

	if err := p.store.Upsert(ctx, cols.Analysis, report.ID, report); err != nil {
		return report, fmt.Errorf("%w: report %s: %w", ErrPersistenceFailed, username, err)
	}

	slog.Info("analysis complete",
		"username", username,
		"posts", len(report.ContentLevel),
		"comment_level", report.CommentLevel != nil,
	)
	return report, nil
}

func newReport(username string, at time.Time) *model.AnalysisReport {
	return &model.AnalysisReport{
		ID:           username,
		Username:     username,
		AnalyzedAt:   at,
		ContentLevel: []model.ContentFinding{},
	}
}

func (p *Pipeline) accountTier(ctx context.Context, account model.Account, selected []model.Post, stories int) string {
	l := p.cfg.Limits
	batch := p.assets.Materialize(ctx, prompt.AccountImageURLs(selected, l.AccountImages), l.AccountImages)
	defer batch.Release()

	text, _ := p.generate(ctx, "account", prompt.Account(account, len(selected), stories, batch.Handles(), l))
	return text
}

func (p *Pipeline) postTier(ctx context.Context, post model.Post) model.ContentFinding {
	l := p.cfg.Limits
	batch := p.assets.Materialize(ctx, prompt.PostImageURLs(post, l.PostImages), l.PostImages)
	defer batch.Release()

	text, ok := p.generate(ctx, "post", prompt.Post(post, batch.Handles(), l))
	return model.ContentFinding{
		Type:       "post",
		PostID:     post.ID,
		Suggestion: text,
		Failed:     !ok,
	}
}

// generate calls the completer and turns a failure into an error marker.
func (p *Pipeline) generate(ctx context.Context, tier string, pr prompt.Prompt) (string, bool) {
	text, err := p.completer.Generate(ctx, pr.Text, pr.Assets)
	if err != nil {
		slog.Warn("completion failed",
			"tier", tier,
			"completer", p.completer.Name(),
			"error", fmt.Errorf("%w: %w", ErrCompletionFailed, err),
		)
		return ErrorMarker(err), false
	}
	return text, true
}
