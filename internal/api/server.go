// Package api exposes the HTTP surface: uploads, document reads, lifecycle
// actions, health, and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordquist/paperflow/internal/blobstore"
	"github.com/nordquist/paperflow/internal/config"
	"github.com/nordquist/paperflow/internal/ingest"
	"github.com/nordquist/paperflow/internal/model"
	"github.com/nordquist/paperflow/internal/queue"
	"github.com/nordquist/paperflow/internal/repository"
	"github.com/nordquist/paperflow/internal/validation"
)

// Server wires HTTP handlers to the ingestion service and repositories.
type Server struct {
	cfg       *config.Config
	ingester  *ingest.Service
	docs      *repository.DocumentRepository
	results   *repository.ResultRepository
	blobs     *blobstore.Store
	scheduler ingest.Scheduler
	log       *slog.Logger
	server    *http.Server
	once      sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, ingester *ingest.Service, docs *repository.DocumentRepository,
	results *repository.ResultRepository, blobs *blobstore.Store, scheduler ingest.Scheduler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		ingester:  ingester,
		docs:      docs,
		results:   results,
		blobs:     blobs,
		scheduler: scheduler,
		log:       log,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		r := mux.NewRouter()
		r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
		r.HandleFunc("/documents", s.handleUpload).Methods(http.MethodPost)
		r.HandleFunc("/documents/{id}", s.handleDocument).Methods(http.MethodGet)
		r.HandleFunc("/documents/{id}/result", s.handleResult).Methods(http.MethodGet)
		r.HandleFunc("/documents/{id}/download-url", s.handleDownloadURL).Methods(http.MethodGet)
		r.HandleFunc("/documents/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
		r.HandleFunc("/documents/{id}/reprocess", s.handleReprocess).Methods(http.MethodPost)
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: loggingMiddleware(s.log, r),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts one multipart file. Validation failures are rejected
// synchronously; once accepted, the response returns before extraction runs
// and failures are visible only via subsequent status/result reads.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "expecting multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file part", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	ownerID := r.Header.Get("X-Owner-ID")
	if ownerID == "" {
		ownerID = "anonymous"
	}

	doc, duplicate, err := s.ingester.Ingest(ctx, ownerID, data, header.Filename, contentType)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrEmptyFile),
			errors.Is(err, validation.ErrFileTooLarge),
			errors.Is(err, validation.ErrTypeNotAllowed),
			errors.Is(err, validation.ErrMissingFileName):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ingest.ErrQueueFull):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		default:
			s.log.Error("ingest failed", "fileName", header.Filename, "error", err)
			http.Error(w, "failed to accept upload", http.StatusInternalServerError)
		}
		return
	}
	status := http.StatusAccepted
	if duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, doc)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, err := s.results.LatestForDocument(r.Context(), doc.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "document not processed yet", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load result", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	url, err := s.blobs.PresignRawURL(r.Context(), doc.ObjectKey, s.cfg.SignedURLTTL)
	if err != nil {
		http.Error(w, "failed to generate url", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleCancel is the external-actor transition into Cancelled.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.docs.SetStatus(r.Context(), doc.ID, model.StatusCancelled); err != nil {
		if errors.Is(err, repository.ErrBadTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to cancel", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":     doc.ID,
		"status": string(model.StatusCancelled),
	})
}

// handleReprocess resets a terminal document to pending and schedules a new
// extraction attempt.
func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	reset, err := s.docs.Resubmit(r.Context(), doc.ID)
	if err != nil {
		if errors.Is(err, repository.ErrBadTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to resubmit", http.StatusInternalServerError)
		return
	}
	payload := queue.ExtractPayload{
		DocumentID:  reset.ID,
		ObjectKey:   reset.ObjectKey,
		FileName:    reset.FileName,
		ContentType: reset.ContentType,
	}
	if err := s.scheduler.EnqueueExtract(r.Context(), payload); err != nil {
		s.log.Error("reprocess enqueue failed", "documentId", reset.ID, "error", err)
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, reset)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.Document, bool) {
	id := mux.Vars(r)["id"]
	doc, err := s.docs.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return nil, false
	}
	return doc, true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}
