// Package pipeline sequences extraction, persistence and analysis for one
// account at a time. Calls are strictly sequential: no two requests to the
// source, the store or the completion service overlap.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steve-cardenas/snagent/internal/assets"
	"github.com/steve-cardenas/snagent/internal/completion"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/db"
	"github.com/steve-cardenas/snagent/internal/model"
	"github.com/steve-cardenas/snagent/internal/source"
)

// Extraction stages recorded in ExtractionSummary failures.
const (
	StageProfile  = "profile"
	StagePosts    = "posts"
	StageComments = "comments"
	StageStories  = "stories"
)

// Pipeline runs the extraction and analysis passes.
type Pipeline struct {
	cfg       *config.Config
	store     db.DocumentStore
	source    source.Source
	completer completion.Completer
	assets    *assets.Materializer
	now       func() time.Time
}

// New creates a new Pipeline.
func New(
	cfg *config.Config,
	store db.DocumentStore,
	src source.Source,
	completer completion.Completer,
	materializer *assets.Materializer,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		source:    src,
		completer: completer,
		assets:    materializer,
		now:       time.Now,
	}
}

// Result holds the outcome of Run.
type Result struct {
	Summary *model.ExtractionSummary `json:"summary"`
	Report  *model.AnalysisReport    `json:"report"`
}

// Run extracts username and then analyzes what is stored for it. An
// unavailable source does not stop the analysis of previously stored data;
// a persistence failure does.
func (p *Pipeline) Run(ctx context.Context, username string) (*Result, error) {
	summary, extractErr := p.Extract(ctx, username)
	res := &Result{Summary: summary}
	if extractErr != nil {
		if errors.Is(extractErr, ErrPersistenceFailed) || ctx.Err() != nil {
			return res, fmt.Errorf("extract %s: %w", username, extractErr)
		}
		slog.Warn("extraction failed, analyzing stored data",
			"username", username,
			"error", extractErr,
		)
		extractErr = fmt.Errorf("extract %s: %w", username, extractErr)
	}

	report, err := p.Analyze(ctx, username)
	res.Report = report
	if err != nil {
		return res, errors.Join(extractErr, fmt.Errorf("analyze %s: %w", username, err))
	}
	return res, extractErr
}
