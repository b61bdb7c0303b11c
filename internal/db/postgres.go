package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps documents as JSONB bodies in a single table.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

var _ DocumentStore = (*PostgresStore)(nil)

// NewPostgresStore connects a pool to connStr.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{Pool: pool}, nil
}

// Upsert stores doc as JSONB under (collection, id).
func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE SET body = $3, updated_at = now()`,
		collection, id, string(body))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Find decodes the matching bodies into out as one JSON array.
func (s *PostgresStore) Find(ctx context.Context, collection string, filter Filter, srt *Sort, out any) error {
	keys, err := filter.sortedKeys()
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("SELECT body::text FROM documents WHERE collection = $1")
	args := []any{collection}
	for _, k := range keys {
		args = append(args, fmt.Sprint(filter[k]))
		fmt.Fprintf(&sb, " AND body->>'%s' = $%d", k, len(args))
	}
	if srt != nil {
		if err := checkField(srt.Field); err != nil {
			return err
		}
		fmt.Fprintf(&sb, " ORDER BY body->>'%s'", srt.Field)
		if srt.Desc {
			sb.WriteString(" DESC")
		}
		sb.WriteString(", id")
	}

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}

	if err := json.Unmarshal([]byte("["+strings.Join(bodies, ",")+"]"), out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Get decodes the document with id into out.
func (s *PostgresStore) Get(ctx context.Context, collection, id string, out any) error {
	var body string
	err := s.Pool.QueryRow(ctx,
		"SELECT body::text FROM documents WHERE collection = $1 AND id = $2", collection, id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Migrate creates the documents table and its index.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	slog.Info("running database migrations", "backend", BackendPostgres)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			body JSONB NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_account ON documents (collection, (body->>'account_username'))`,
	}
	for _, q := range queries {
		if _, err := s.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}
