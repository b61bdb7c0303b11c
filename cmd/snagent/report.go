package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/db"
	"github.com/steve-cardenas/snagent/internal/model"
)

var reportCmd = &cobra.Command{
	Use:   "report <username>",
	Short: "Show the stored analysis report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	var report model.AnalysisReport
	if err := store.Get(ctx, cfg.Collections.Analysis, args[0], &report); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("no report for %s, run \"snagent analyze %s\" first", args[0], args[0])
		}
		return fmt.Errorf("load report: %w", err)
	}

	return printJSON(report)
}
