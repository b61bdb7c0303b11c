package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the document store",
	Long:  `Create the tables (sqlite, PostgreSQL) or indexes (MongoDB) the pipeline uses.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	slog.Info("connecting to document store", "backend", db.BackendFor(cfg.DatabaseURI))
	store, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("migrations completed successfully")
	return nil
}
