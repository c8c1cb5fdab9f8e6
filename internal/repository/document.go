// Package repository wraps all SQL used by the API server and the worker.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordquist/paperflow/internal/model"
)

var (
	// ErrNotFound is returned when a document or result does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadTransition is returned when a status change violates the
	// lifecycle state machine.
	ErrBadTransition = errors.New("invalid status transition")
)

// DocumentRepository persists documents and enforces status transitions.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs a repository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

const documentColumns = `id, owner_id, file_name, size_bytes, content_type, object_key,
	content_hash, status, detected_language, page_count, created_at, updated_at, processed_at`

// Create inserts a pending document before processing begins.
func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	now := time.Now().UTC()
	doc.Status = model.StatusPending
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, owner_id, file_name, size_bytes, content_type, object_key,
			content_hash, status, detected_language, page_count, created_at, updated_at, processed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, doc.ID, doc.OwnerID, doc.FileName, doc.Size, doc.ContentType, doc.ObjectKey,
		doc.ContentHash, doc.Status, doc.DetectedLanguage, doc.PageCount,
		doc.CreatedAt, doc.UpdatedAt, doc.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// FindByID returns a document by id.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

// FindByHash returns the document with the given content hash, if any.
// Duplicate uploads resolve to this record instead of creating a new one.
func (r *DocumentRepository) FindByHash(ctx context.Context, hash string) (*model.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE content_hash=$1`, hash)
	return scanDocument(row)
}

// SetStatus moves a document to a new status, enforcing the transition
// table. processed_at is set exactly when the target status is terminal.
func (r *DocumentRepository) SetStatus(ctx context.Context, id string, status model.Status) error {
	doc, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !doc.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, doc.Status, status)
	}
	processedAt := terminalTimestamp(status, time.Now().UTC())
	_, err = r.pool.Exec(ctx, `
		UPDATE documents SET status=$1, processed_at=$2, updated_at=$3 WHERE id=$4
	`, status, processedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Complete applies the terminal outcome of an extraction attempt: status,
// processed_at, and the derived fields land in a single UPDATE so readers
// never observe a half-finished document.
func (r *DocumentRepository) Complete(ctx context.Context, id string, status model.Status, pageCount *int, language *string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrBadTransition, status)
	}
	doc, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !doc.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, doc.Status, status)
	}
	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, `
		UPDATE documents
		SET status=$1,
			page_count = COALESCE($2, page_count),
			detected_language = COALESCE($3, detected_language),
			processed_at=$4,
			updated_at=$4
		WHERE id=$5
	`, status, pageCount, language, now, id)
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	return nil
}

// Resubmit resets a terminal document to pending so it can be processed again.
func (r *DocumentRepository) Resubmit(ctx context.Context, id string) (*model.Document, error) {
	doc, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransition(model.StatusPending) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, doc.Status, model.StatusPending)
	}
	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, `
		UPDATE documents SET status=$1, processed_at=NULL, updated_at=$2 WHERE id=$3
	`, model.StatusPending, now, id)
	if err != nil {
		return nil, fmt.Errorf("resubmit document: %w", err)
	}
	doc.Status = model.StatusPending
	doc.ProcessedAt = nil
	doc.UpdatedAt = now
	return doc, nil
}

// CountActive returns how many documents are waiting or being processed.
// The ingestion service uses this as its backpressure signal.
func (r *DocumentRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM documents WHERE status = ANY($1)
	`, []string{string(model.StatusPending), string(model.StatusProcessing)}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active documents: %w", err)
	}
	return n, nil
}

// terminalTimestamp returns the processed_at value for a status change:
// set for terminal statuses, NULL otherwise.
func terminalTimestamp(status model.Status, now time.Time) *time.Time {
	if status.Terminal() {
		return &now
	}
	return nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var doc model.Document
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.FileName, &doc.Size, &doc.ContentType,
		&doc.ObjectKey, &doc.ContentHash, &doc.Status, &doc.DetectedLanguage,
		&doc.PageCount, &doc.CreatedAt, &doc.UpdatedAt, &doc.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return &doc, nil
}
