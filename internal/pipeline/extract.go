package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steve-cardenas/snagent/internal/model"
	"github.com/steve-cardenas/snagent/internal/normalize"
	"github.com/steve-cardenas/snagent/internal/window"
)

// Extract reads the profile, recent posts with their comments, and active
// stories of username, upserting every document as it goes.
//
// A profile failure aborts the pass with ErrSourceUnavailable. Failed
// listings are recorded in the summary and leave their subsection empty.
// Any upsert failure aborts with ErrPersistenceFailed. The summary is
// returned in every case.
func (p *Pipeline) Extract(ctx context.Context, username string) (*model.ExtractionSummary, error) {
	at := p.now().UTC()
	summary := model.NewExtractionSummary(username, at)

	if p.source == nil {
		return summary, fmt.Errorf("%w: no profile source configured", ErrSourceUnavailable)
	}

	slog.Info("starting extraction", "username", username)

	profile, err := p.source.FetchProfile(ctx, username)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		summary.Fail(StageProfile, username, err)
		slog.Error("profile unavailable", "username", username, "error", err)
		return summary, err
	}

	account := normalize.Account(profile, username, at)
	if err := p.store.Upsert(ctx, p.cfg.Collections.Accounts, account.ID, account); err != nil {
		return summary, fmt.Errorf("%w: account %s: %w", ErrPersistenceFailed, username, err)
	}
	summary.Account = &account

	if err := p.extractPosts(ctx, summary, at); err != nil {
		return summary, err
	}
	if err := p.extractStories(ctx, summary, profile.UserID, at); err != nil {
		return summary, err
	}

	slog.Info("extraction complete",
		"username", username,
		"posts", len(summary.Posts),
		"stories", len(summary.Stories),
		"failures", len(summary.Failures),
	)
	return summary, nil
}

// extractPosts walks the feed newest first and stops with the same rule the
// analysis pass selects with.
func (p *Pipeline) extractPosts(ctx context.Context, summary *model.ExtractionSummary, at time.Time) error {
	l := p.cfg.Limits
	cutoff := window.Cutoff(at, l.WindowDays)

	for raw, err := range p.source.ListPosts(ctx, summary.Username) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.subsectionFailed(summary, StagePosts, summary.Username, err)
			return nil
		}
		if window.ShouldStop(raw.TakenAt, cutoff, len(summary.Posts), l.PostFloor) {
			break
		}

		post := normalize.Post(raw, summary.Username, l.PostImages, at)
		if err := p.collectComments(ctx, summary, &post); err != nil {
			return err
		}

		if err := p.store.Upsert(ctx, p.cfg.Collections.Posts, post.ID, post); err != nil {
			return fmt.Errorf("%w: post %s: %w", ErrPersistenceFailed, post.ID, err)
		}
		summary.Posts = append(summary.Posts, post)
	}
	return nil
}

// collectComments embeds comments in source order up to the cap. A failed
// listing keeps what was read before the failure.
func (p *Pipeline) collectComments(ctx context.Context, summary *model.ExtractionSummary, post *model.Post) error {
	limit := p.cfg.Limits.Comments
	if limit <= 0 {
		return nil
	}

	for raw, err := range p.source.ListComments(ctx, post.ID) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.subsectionFailed(summary, StageComments, post.ID, err)
			return nil
		}
		if !normalize.AppendComment(post, raw, limit) || len(post.Comments) >= limit {
			break
		}
	}
	return nil
}

// extractStories is best-effort: no stories is a normal outcome.
func (p *Pipeline) extractStories(ctx context.Context, summary *model.ExtractionSummary, userID string, at time.Time) error {
	for raw, err := range p.source.ListActiveStories(ctx, userID) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.subsectionFailed(summary, StageStories, userID, err)
			return nil
		}

		story := normalize.Story(raw, summary.Username, at)
		if err := p.store.Upsert(ctx, p.cfg.Collections.Stories, story.ID, story); err != nil {
			return fmt.Errorf("%w: story %s: %w", ErrPersistenceFailed, story.ID, err)
		}
		summary.Stories = append(summary.Stories, story)
	}
	return nil
}

func (p *Pipeline) subsectionFailed(summary *model.ExtractionSummary, stage, target string, err error) {
	err = fmt.Errorf("%w: %s: %w", ErrSubsectionUnavailable, stage, err)
	summary.Fail(stage, target, err)
	slog.Warn("subsection unavailable, continuing",
		"username", summary.Username,
		"stage", stage,
		"target", target,
		"error", err,
	)
}
