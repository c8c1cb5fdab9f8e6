// Package worker hosts the asynq handler that runs extraction jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nordquist/paperflow/internal/extract"
	"github.com/nordquist/paperflow/internal/metrics"
	"github.com/nordquist/paperflow/internal/model"
	"github.com/nordquist/paperflow/internal/queue"
	"github.com/nordquist/paperflow/internal/repository"
)

// DocumentStore is the document persistence surface the worker needs.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (*model.Document, error)
	SetStatus(ctx context.Context, id string, status model.Status) error
	Complete(ctx context.Context, id string, status model.Status, pageCount *int, language *string) error
}

// ResultStore persists extraction outcomes.
type ResultStore interface {
	Create(ctx context.Context, res *model.ProcessingResult) error
}

// BlobFetcher materializes raw objects onto local disk.
type BlobFetcher interface {
	Materialize(ctx context.Context, objectKey string) (string, error)
}

// Extractor runs the extraction pipeline for one file.
type Extractor interface {
	Process(ctx context.Context, path, fileName, contentType string) extract.Outcome
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	docs      DocumentStore
	results   ResultStore
	blobs     BlobFetcher
	extractor Extractor
	log       *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(docs DocumentStore, results ResultStore, blobs BlobFetcher, extractor Extractor, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{docs: docs, results: results, blobs: blobs, extractor: extractor, log: log}
}

// Handler registers the extract job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExtractDocumentTask, p.HandleExtract)
	return mux
}

// HandleExtract runs one extraction job. Infrastructure errors (database,
// blob store) are returned so asynq retries; extraction failures are
// persisted as failed results and never retried.
func (p *Processor) HandleExtract(ctx context.Context, task *asynq.Task) error {
	var payload queue.ExtractPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	log := p.log.With("documentId", payload.DocumentID, "fileName", payload.FileName)

	doc, err := p.docs.FindByID(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("document vanished before processing")
			return nil
		}
		return err
	}
	switch {
	case doc.Status == model.StatusCancelled:
		log.Info("skipping cancelled document")
		return nil
	case doc.Status.Terminal():
		log.Info("document already finished", "status", doc.Status)
		return nil
	case doc.Status == model.StatusProcessing:
		// A previous attempt claimed the document and then hit an
		// infrastructure error. Re-enter without a status write so the
		// asynq retry actually runs extraction.
		log.Info("resuming document already marked processing")
	default:
		if err := p.docs.SetStatus(ctx, payload.DocumentID, model.StatusProcessing); err != nil {
			if errors.Is(err, repository.ErrBadTransition) {
				// An external actor moved the document between the read
				// above and this write. Nothing to do.
				log.Warn("document no longer processable", "error", err)
				return nil
			}
			return err
		}
	}

	path, err := p.blobs.Materialize(ctx, payload.ObjectKey)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	outcome := p.extractor.Process(ctx, path, payload.FileName, payload.ContentType)
	return p.record(ctx, log, payload.DocumentID, outcome)
}

func (p *Processor) record(ctx context.Context, log *slog.Logger, documentID string, outcome extract.Outcome) error {
	processor := outcome.Processor
	if processor == "" {
		processor = "none"
	}
	result := &model.ProcessingResult{
		DocumentID: documentID,
		Processor:  processor,
		Confidence: outcome.Confidence,
		DurationMS: outcome.Elapsed.Milliseconds(),
	}
	status := model.StatusFailed
	var (
		pageCount *int
		language  *string
	)
	if outcome.Success {
		status = model.StatusCompleted
		text := outcome.Text
		result.Text = &text
		if data, err := json.Marshal(outcome.Metadata); err == nil {
			result.MetadataJSON = string(data)
		}
		pc := outcome.Metadata.PageCount
		pageCount = &pc
		if v, ok := outcome.Metadata.Property("OcrDetectedLanguage"); ok && v.Str != "" {
			lang := v.Str
			language = &lang
		}
	} else {
		msg := outcome.ErrorMessage
		result.ErrorMessage = &msg
	}

	if err := p.results.Create(ctx, result); err != nil {
		return err
	}
	if err := p.docs.Complete(ctx, documentID, status, pageCount, language); err != nil {
		if errors.Is(err, repository.ErrBadTransition) {
			log.Warn("terminal status not applied", "error", err)
			return nil
		}
		return err
	}

	metrics.ExtractionsTotal.WithLabelValues(processor, string(status)).Inc()
	metrics.ExtractionDuration.WithLabelValues(processor).Observe(outcome.Elapsed.Seconds())
	if outcome.Success {
		metrics.ExtractionConfidence.Observe(outcome.Confidence)
		log.Info("document processed", "processor", processor, "words", outcome.WordCount, "confidence", outcome.Confidence)
	} else {
		log.Warn("document failed", "processor", processor, "error", outcome.ErrorMessage)
	}
	return nil
}
