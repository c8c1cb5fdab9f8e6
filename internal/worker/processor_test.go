package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/nordquist/paperflow/internal/extract"
	"github.com/nordquist/paperflow/internal/model"
	"github.com/nordquist/paperflow/internal/queue"
	"github.com/nordquist/paperflow/internal/repository"
)

type fakeWorkerDocs struct {
	doc        *model.Document
	statuses   []model.Status
	completed  model.Status
	pageCount  *int
	language   *string
	findErr    error
	setErr     error
	complErr   error
	completeCt int
}

func (s *fakeWorkerDocs) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.doc, nil
}

func (s *fakeWorkerDocs) SetStatus(ctx context.Context, id string, status model.Status) error {
	if s.setErr != nil {
		return s.setErr
	}
	if !s.doc.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", repository.ErrBadTransition, s.doc.Status, status)
	}
	s.doc.Status = status
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeWorkerDocs) Complete(ctx context.Context, id string, status model.Status, pageCount *int, language *string) error {
	if s.complErr != nil {
		return s.complErr
	}
	if !s.doc.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", repository.ErrBadTransition, s.doc.Status, status)
	}
	s.doc.Status = status
	s.completeCt++
	s.completed = status
	s.pageCount = pageCount
	s.language = language
	return nil
}

type fakeResults struct {
	created []*model.ProcessingResult
	err     error
}

func (r *fakeResults) Create(ctx context.Context, res *model.ProcessingResult) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, res)
	return nil
}

type fakeFetcher struct {
	dir      string
	err      error
	failures int
	calls    int
}

func (f *fakeFetcher) Materialize(ctx context.Context, objectKey string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.failures > 0 {
		f.failures--
		return "", errors.New("transient blob store error")
	}
	path := filepath.Join(f.dir, "materialized.bin")
	if err := os.WriteFile(path, []byte("raw"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type fakeExtractor struct {
	outcome extract.Outcome
}

func (e *fakeExtractor) Process(ctx context.Context, path, fileName, contentType string) extract.Outcome {
	return e.outcome
}

func extractTask(t *testing.T) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.ExtractPayload{
		DocumentID:  "doc-1",
		ObjectKey:   "uploads/doc-1/a.pdf",
		FileName:    "a.pdf",
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.ExtractDocumentTask, payload)
}

func TestHandleExtractSuccess(t *testing.T) {
	md := model.DocumentMetadata{Title: "Report", PageCount: 4}
	docs := &fakeWorkerDocs{doc: &model.Document{ID: "doc-1", Status: model.StatusPending}}
	results := &fakeResults{}
	p := NewProcessor(docs, results, &fakeFetcher{dir: t.TempDir()}, &fakeExtractor{
		outcome: extract.Outcome{
			Success:    true,
			Processor:  "pdf-v1",
			Text:       "page text",
			Metadata:   md,
			Confidence: 0.85,
		},
	}, nil)

	if err := p.HandleExtract(context.Background(), extractTask(t)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(docs.statuses) != 1 || docs.statuses[0] != model.StatusProcessing {
		t.Fatalf("statuses = %v, want [processing]", docs.statuses)
	}
	if docs.completed != model.StatusCompleted {
		t.Fatalf("final status = %s, want completed", docs.completed)
	}
	if docs.pageCount == nil || *docs.pageCount != 4 {
		t.Fatalf("page count = %v, want 4", docs.pageCount)
	}
	if len(results.created) != 1 {
		t.Fatalf("%d results, want 1", len(results.created))
	}
	res := results.created[0]
	if res.Text == nil || *res.Text != "page text" {
		t.Errorf("result text = %v", res.Text)
	}
	if res.MetadataJSON == "" {
		t.Error("metadata json not persisted")
	}
}

func TestHandleExtractFailureIsTerminal(t *testing.T) {
	docs := &fakeWorkerDocs{doc: &model.Document{ID: "doc-1", Status: model.StatusPending}}
	results := &fakeResults{}
	p := NewProcessor(docs, results, &fakeFetcher{dir: t.TempDir()}, &fakeExtractor{
		outcome: extract.Outcome{
			Success:      false,
			Processor:    "pdf-v1",
			ErrorMessage: "corrupt document",
		},
	}, nil)

	// Extraction failure is persisted, not retried, so the handler returns nil.
	if err := p.HandleExtract(context.Background(), extractTask(t)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if docs.completed != model.StatusFailed {
		t.Fatalf("final status = %s, want failed", docs.completed)
	}
	res := results.created[0]
	if res.ErrorMessage == nil || *res.ErrorMessage != "corrupt document" {
		t.Fatalf("error message = %v", res.ErrorMessage)
	}
	if res.Text != nil {
		t.Fatal("failed result should carry no text")
	}
}

func TestHandleExtractSkipsCancelled(t *testing.T) {
	docs := &fakeWorkerDocs{doc: &model.Document{ID: "doc-1", Status: model.StatusCancelled}}
	results := &fakeResults{}
	p := NewProcessor(docs, results, &fakeFetcher{dir: t.TempDir()}, &fakeExtractor{}, nil)

	if err := p.HandleExtract(context.Background(), extractTask(t)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(docs.statuses) != 0 || len(results.created) != 0 {
		t.Fatal("cancelled document must not be touched")
	}
}

func TestHandleExtractMissingDocument(t *testing.T) {
	docs := &fakeWorkerDocs{findErr: repository.ErrNotFound}
	p := NewProcessor(docs, &fakeResults{}, &fakeFetcher{dir: t.TempDir()}, &fakeExtractor{}, nil)

	if err := p.HandleExtract(context.Background(), extractTask(t)); err != nil {
		t.Fatalf("missing document should not retry, got %v", err)
	}
}

func TestHandleExtractResumesAfterInfraError(t *testing.T) {
	docs := &fakeWorkerDocs{doc: &model.Document{ID: "doc-1", Status: model.StatusPending}}
	results := &fakeResults{}
	fetcher := &fakeFetcher{dir: t.TempDir(), failures: 1}
	p := NewProcessor(docs, results, fetcher, &fakeExtractor{
		outcome: extract.Outcome{
			Success:   true,
			Processor: "pdf-v1",
			Text:      "recovered",
			Metadata:  model.DocumentMetadata{PageCount: 1},
		},
	}, nil)

	// First attempt claims the document, then fails on the blob store. The
	// error must propagate so asynq retries.
	if err := p.HandleExtract(context.Background(), extractTask(t)); err == nil {
		t.Fatal("first attempt should surface the infra error")
	}
	if docs.doc.Status != model.StatusProcessing {
		t.Fatalf("status after failed attempt = %s, want processing", docs.doc.Status)
	}

	// The retry must re-enter the already-processing document and finish it.
	if err := p.HandleExtract(context.Background(), extractTask(t)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetcher called %d times, want 2", fetcher.calls)
	}
	if docs.doc.Status != model.StatusCompleted {
		t.Fatalf("final status = %s, want completed", docs.doc.Status)
	}
	if len(results.created) != 1 {
		t.Fatalf("%d results, want 1", len(results.created))
	}
}

func TestHandleExtractInfraErrorRetries(t *testing.T) {
	infraErr := errors.New("blob store unreachable")
	docs := &fakeWorkerDocs{doc: &model.Document{ID: "doc-1", Status: model.StatusPending}}
	p := NewProcessor(docs, &fakeResults{}, &fakeFetcher{err: infraErr}, &fakeExtractor{}, nil)

	if err := p.HandleExtract(context.Background(), extractTask(t)); !errors.Is(err, infraErr) {
		t.Fatalf("error = %v, want %v for asynq retry", err, infraErr)
	}
}
