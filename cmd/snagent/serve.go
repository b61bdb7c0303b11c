package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/steve-cardenas/snagent/internal/app"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on a schedule",
	Long: `Run the pipeline for every account in INSTAGRAM_USERNAME_ANALYZE at start
and then every RUN_INTERVAL, until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg, app.Options{Source: true, Completer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("starting snagent daemon",
		"accounts", cfg.Usernames,
		"interval", cfg.RunInterval,
		"completer", a.Completer.Name(),
	)

	sched := scheduler.New(scheduler.Config{
		Runner:    a.Pipeline,
		Usernames: cfg.Usernames,
		Interval:  cfg.RunInterval,
	})

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler error: %w", err)
	}

	slog.Info("shutting down...")
	for name, status := range sched.Health().Snapshot() {
		slog.Info("account status",
			"username", name,
			"healthy", status.Healthy,
			"last_run", status.LastRun,
			"consecutive_failures", status.ConsecutiveFailures,
		)
	}
	return nil
}
