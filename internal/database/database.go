package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the documents and processing_results tables if needed.
// Having the migration in code keeps the stack self-contained so
// docker-compose can bootstrap everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	content_type TEXT NOT NULL,
	object_key TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	detected_language TEXT,
	page_count INTEGER,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE TABLE IF NOT EXISTS processing_results (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	processor TEXT NOT NULL,
	extracted_text TEXT,
	metadata JSONB,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processing_results_document ON processing_results(document_id, created_at DESC);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
