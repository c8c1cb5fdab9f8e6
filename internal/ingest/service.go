// Package ingest validates uploads, deduplicates by content hash, and
// schedules background extraction.
package ingest

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	sha256 "github.com/minio/sha256-simd"

	"github.com/nordquist/paperflow/internal/metrics"
	"github.com/nordquist/paperflow/internal/model"
	"github.com/nordquist/paperflow/internal/queue"
	"github.com/nordquist/paperflow/internal/repository"
	"github.com/nordquist/paperflow/internal/validation"
)

// ErrQueueFull is returned when too many documents are already pending or
// processing. Backpressure instead of unbounded fan-out.
var ErrQueueFull = errors.New("extraction queue is full")

// DocumentStore is the persistence surface the service needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByHash(ctx context.Context, hash string) (*model.Document, error)
	SetStatus(ctx context.Context, id string, status model.Status) error
	CountActive(ctx context.Context) (int, error)
}

// BlobStore stores raw uploaded bytes.
type BlobStore interface {
	UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// Scheduler enqueues extraction jobs.
type Scheduler interface {
	EnqueueExtract(ctx context.Context, payload queue.ExtractPayload) error
}

// Service implements the ingestion flow: validate, hash, dedupe, persist,
// schedule.
type Service struct {
	docs      DocumentStore
	blobs     BlobStore
	scheduler Scheduler
	validator *validation.Validator
	maxDepth  int
	log       *slog.Logger
}

// New constructs the ingestion service.
func New(docs DocumentStore, blobs BlobStore, scheduler Scheduler, validator *validation.Validator, maxDepth int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		docs:      docs,
		blobs:     blobs,
		scheduler: scheduler,
		validator: validator,
		maxDepth:  maxDepth,
		log:       log,
	}
}

// Ingest accepts one upload. The returned bool is true when the bytes were
// already known and the existing document is returned instead of a new one.
// The caller gets the document back before extraction runs.
func (s *Service) Ingest(ctx context.Context, ownerID string, data []byte, fileName, contentType string) (*model.Document, bool, error) {
	if err := s.validator.ValidateUpload(int64(len(data)), fileName, contentType); err != nil {
		metrics.IngestsTotal.WithLabelValues("rejected").Inc()
		return nil, false, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	log := s.log.With("fileName", fileName, "contentHash", hash)

	existing, err := s.docs.FindByHash(ctx, hash)
	if err == nil {
		// Idempotent dedup: same bytes resolve to the same document and no
		// new processing is triggered.
		metrics.IngestsTotal.WithLabelValues("duplicate").Inc()
		log.Info("duplicate upload", "documentId", existing.ID)
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("lookup by hash: %w", err)
	}

	if s.maxDepth > 0 {
		active, err := s.docs.CountActive(ctx)
		if err != nil {
			metrics.IngestsTotal.WithLabelValues("error").Inc()
			return nil, false, fmt.Errorf("count active: %w", err)
		}
		if active >= s.maxDepth {
			metrics.IngestsTotal.WithLabelValues("backpressure").Inc()
			return nil, false, fmt.Errorf("%w: %d active documents", ErrQueueFull, active)
		}
	}

	doc := &model.Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		FileName:    fileName,
		Size:        int64(len(data)),
		ContentType: contentType,
		ContentHash: hash,
	}
	doc.ObjectKey = fmt.Sprintf("uploads/%s/%s", doc.ID, filepath.Base(fileName))

	if err := s.blobs.UploadRaw(ctx, doc.ObjectKey, bytes.NewReader(data), doc.Size, contentType); err != nil {
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("store raw bytes: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("persist document: %w", err)
	}

	payload := queue.ExtractPayload{
		DocumentID:  doc.ID,
		ObjectKey:   doc.ObjectKey,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
	}
	if err := s.scheduler.EnqueueExtract(ctx, payload); err != nil {
		// The record exists but no worker will ever see it; fail it so the
		// document does not sit pending forever.
		if markErr := s.docs.SetStatus(ctx, doc.ID, model.StatusFailed); markErr != nil {
			log.Error("mark failed after enqueue error", "documentId", doc.ID, "error", markErr)
		}
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("schedule extraction: %w", err)
	}

	metrics.IngestsTotal.WithLabelValues("accepted").Inc()
	log.Info("document accepted", "documentId", doc.ID, "size", doc.Size)
	return doc, false, nil
}
