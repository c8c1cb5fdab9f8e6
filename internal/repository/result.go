package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordquist/paperflow/internal/model"
)

// ResultRepository persists processing results. Rows are append-only; the
// newest row per document is authoritative.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository constructs a repository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result row for one extraction attempt.
func (r *ResultRepository) Create(ctx context.Context, res *model.ProcessingResult) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.CreatedAt = time.Now().UTC()
	var metadata *string
	if res.MetadataJSON != "" {
		metadata = &res.MetadataJSON
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO processing_results (id, document_id, processor, extracted_text, metadata,
			confidence, duration_ms, error_message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, res.ID, res.DocumentID, res.Processor, res.Text, metadata,
		res.Confidence, res.DurationMS, res.ErrorMessage, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert processing result: %w", err)
	}
	return nil
}

// LatestForDocument returns the most recent result for a document.
func (r *ResultRepository) LatestForDocument(ctx context.Context, documentID string) (*model.ProcessingResult, error) {
	var (
		res      model.ProcessingResult
		metadata *string
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, processor, extracted_text, metadata, confidence, duration_ms, error_message, created_at
		FROM processing_results
		WHERE document_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, documentID)
	err := row.Scan(&res.ID, &res.DocumentID, &res.Processor, &res.Text, &metadata,
		&res.Confidence, &res.DurationMS, &res.ErrorMessage, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select processing result: %w", err)
	}
	if metadata != nil {
		res.MetadataJSON = *metadata
	}
	return &res, nil
}
