package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/steve-cardenas/snagent/internal/pipeline"
)

// Runner runs the full pipeline for one account.
type Runner interface {
	Run(ctx context.Context, username string) (*pipeline.Result, error)
}

// Scheduler runs the pipeline for every configured account at start and then
// on every tick. Accounts are processed one after the other, never in parallel.
type Scheduler struct {
	runner    Runner
	usernames []string
	interval  time.Duration
	health    *Health
}

// Config holds scheduler configuration.
type Config struct {
	Runner    Runner
	Usernames []string
	Interval  time.Duration
}

// New creates a new scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		runner:    cfg.Runner,
		usernames: cfg.Usernames,
		interval:  cfg.Interval,
		health:    NewHealth(),
	}
}

// Run starts the scheduler main loop. It returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("starting scheduler",
		"interval", s.interval,
		"accounts", s.usernames,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle runs the pipeline once for each account.
func (s *Scheduler) RunCycle(ctx context.Context) {
	slog.Debug("running pipeline cycle", "accounts", len(s.usernames))

	start := time.Now()
	failed := 0
	for _, username := range s.usernames {
		if ctx.Err() != nil {
			return
		}

		res, err := s.runner.Run(ctx, username)
		s.health.RecordRun(username, res, err)
		if err != nil {
			failed++
			slog.Error("pipeline run failed", "username", username, "error", err)
		}
	}

	slog.Info("pipeline cycle complete",
		"accounts", len(s.usernames),
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// Health returns the health tracker.
func (s *Scheduler) Health() *Health {
	return s.health
}
