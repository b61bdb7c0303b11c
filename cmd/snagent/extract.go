package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steve-cardenas/snagent/internal/app"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/model"
)

var extractCmd = &cobra.Command{
	Use:   "extract [username...]",
	Short: "Extract account data into the document store",
	Long: `Extract the profile, recent posts with their comments, and active stories
of each account, and upsert them into the document store.

Posts are read newest first until both the analysis window (MAX_DAYS_ANALYSIS)
is exhausted and at least MAX_POSTS_ANALYSIS posts were kept.

Examples:
  snagent extract natgeo
  snagent extract              # accounts from INSTAGRAM_USERNAME_ANALYZE`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForExtraction(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	usernames, err := targetUsernames(cfg, args)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.Options{Source: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var summaries []*model.ExtractionSummary
	var failed int
	for _, username := range usernames {
		summary, err := a.Pipeline.Extract(ctx, username)
		summaries = append(summaries, summary)
		if err != nil {
			failed++
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if !outputJSON {
			printSummary(summary, err)
		}
	}

	if outputJSON {
		if err := printJSON(summaries); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("extraction failed for %d of %d accounts", failed, len(usernames))
	}
	return nil
}

func printSummary(s *model.ExtractionSummary, err error) {
	fmt.Printf("=== %s ===\n", s.Username)
	if err != nil {
		fmt.Printf("  ERROR: %v\n", err)
	}
	if s.Account != nil {
		fmt.Printf("  Followers: %d\n", s.Account.Followers)
	}
	fmt.Printf("  Posts:     %d\n", len(s.Posts))
	fmt.Printf("  Stories:   %d\n", len(s.Stories))
	for _, f := range s.Failures {
		fmt.Printf("  ! %s %s: %s\n", f.Stage, f.Target, f.Message)
	}
	fmt.Println()
}
