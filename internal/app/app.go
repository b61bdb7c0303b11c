package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/steve-cardenas/snagent/internal/assets"
	"github.com/steve-cardenas/snagent/internal/completion"
	"github.com/steve-cardenas/snagent/internal/config"
	"github.com/steve-cardenas/snagent/internal/db"
	"github.com/steve-cardenas/snagent/internal/pipeline"
	"github.com/steve-cardenas/snagent/internal/source"
)

// Options selects which collaborators New builds. Commands that only extract
// need no completion service; commands that only analyze need no source.
type Options struct {
	Source    bool
	Completer bool
}

// App is the main application container holding all dependencies.
type App struct {
	Config    *config.Config
	Store     db.DocumentStore
	Source    source.Source
	Completer completion.Completer
	Assets    *assets.Materializer
	Pipeline  *pipeline.Pipeline
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	slog.Info("connecting to document store", "backend", db.BackendFor(cfg.DatabaseURI))
	store, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	a := &App{Config: cfg, Store: store}

	if opts.Source {
		ig, err := source.NewInstagram(source.InstagramConfig{
			SessionID: cfg.InstagramSession,
			Proxy:     cfg.InstagramProxy,
			Delay:     cfg.RequestDelay,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create source: %w", err)
		}
		a.Source = ig
	}

	if opts.Completer {
		c, err := completion.New(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create completer: %w", err)
		}
		a.Completer = c
		slog.Debug("completion service ready", "completer", c.Name())
	}

	a.Assets, err = assets.New(assets.Config{
		Dir:       cfg.AssetDir,
		Timeout:   cfg.AssetTimeout,
		CacheSize: cfg.AssetCacheSize,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create asset materializer: %w", err)
	}

	a.Pipeline = pipeline.New(cfg, store, a.Source, a.Completer, a.Assets)
	return a, nil
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
