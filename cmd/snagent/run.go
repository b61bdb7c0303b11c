package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steve-cardenas/snagent/internal/app"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [username...]",
	Short: "Extract and analyze accounts once",
	Long: `Run the extraction pass followed by the analysis pass for each account.

If the profile cannot be read, the analysis still runs over previously stored data.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	a, err := app.New(ctx, cfg, app.Options{Source: true, Completer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var results []*pipeline.Result
	var failed int
	for _, username := range usernames {
		res, err := a.Pipeline.Run(ctx, username)
		results = append(results, res)
		if err != nil {
			failed++
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if !outputJSON {
			printSummary(res.Summary, nil)
			if res.Report != nil {
				printReport(res.Report, nil)
			}
			if err != nil {
				fmt.Printf("ERROR: %v\n\n", err)
			}
		}
	}

	if outputJSON {
		if err := printJSON(results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("run failed for %d of %d accounts", failed, len(usernames))
	}
	return nil
}
