// Package db persists pipeline documents. Every backend offers the same
// document-store contract: idempotent upsert keyed by id and equality-filtered
// finds with an optional sort.
package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/steve-cardenas/snagent/internal/config"
)

// ErrNotFound is returned by Get when no document has the id.
var ErrNotFound = errors.New("document not found")

// Filter matches documents whose top-level fields equal the given values.
type Filter map[string]any

// Sort orders Find results by one top-level field.
type Sort struct {
	Field string
	Desc  bool
}

// DocumentStore is the persistence contract consumed by the pipeline.
type DocumentStore interface {
	// Upsert replaces the document with id in collection, or inserts it.
	Upsert(ctx context.Context, collection, id string, doc any) error

	// Find decodes every matching document into out, a pointer to a slice.
	Find(ctx context.Context, collection string, filter Filter, sort *Sort, out any) error

	// Get decodes one document into out or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, out any) error

	Migrate(ctx context.Context) error
	Close() error
}

// Backend names a DocumentStore implementation.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendMongo    Backend = "mongodb"
	BackendPostgres Backend = "postgres"
)

// BackendFor picks the backend from the scheme of a connection string.
// Anything that is not a MongoDB or PostgreSQL URI is a sqlite file path.
func BackendFor(uri string) Backend {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return BackendMongo
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return BackendPostgres
	default:
		return BackendSQLite
	}
}

// Open connects to the store configured by cfg.
func Open(ctx context.Context, cfg *config.Config) (DocumentStore, error) {
	switch BackendFor(cfg.DatabaseURI) {
	case BackendMongo:
		return NewMongoStore(ctx, cfg.DatabaseURI, cfg.DatabaseName, cfg.Collections)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURI)
	default:
		return NewSQLiteStore(ctx, cfg.DatabaseURI)
	}
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkField rejects names that cannot be inlined into a JSON path.
func checkField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

// sortedKeys returns the filter fields in a stable order so generated SQL is
// deterministic.
func (f Filter) sortedKeys() ([]string, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		if err := checkField(k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
