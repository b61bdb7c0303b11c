package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steve-cardenas/snagent/internal/app"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [username...]",
	Short: "Generate suggestions from stored data",
	Long: `Analyze the stored data of each account and save a report with
account-level, per-post and comment-level suggestions.

Run "snagent extract" first; accounts with no stored data are reported as such.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForAnalysis(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	usernames, err := targetUsernames(cfg, args)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.Options{Completer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var reports []*model.AnalysisReport
	var failed int
	for _, username := range usernames {
		report, err := a.Pipeline.Analyze(ctx, username)
		reports = append(reports, report)
		if err != nil {
			failed++
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if !outputJSON {
			printReport(report, err)
		}
	}

	if outputJSON {
		if err := printJSON(reports); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("analysis failed for %d of %d accounts", failed, len(usernames))
	}
	return nil
}

func printReport(r *model.AnalysisReport, err error) {
	fmt.Printf("=== %s (%s) ===\n", r.Username, r.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	if err != nil {
		fmt.Printf("ERROR: %v\n\n", err)
		return
	}

	if r.AccountLevel != nil {
		fmt.Printf("\n[account]\n%s\n", *r.AccountLevel)
	}
	for _, f := range r.ContentLevel {
		fmt.Printf("\n[post %s]\n%s\n", f.PostID, f.Suggestion)
	}
	if r.CommentLevel != nil {
		fmt.Printf("\n[comments]\n%s\n", *r.CommentLevel)
	}
	fmt.Println()
}
