// Package model contains the shared data types for documents, extraction
// results, and the processing lifecycle.
package model

import "time"

// Document represents one uploaded binary and its processing lifecycle.
type Document struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	FileName         string    `json:"fileName"`
	Size             int64     `json:"size"`
	ContentType      string    `json:"contentType"`
	ObjectKey        string    `json:"-"`
	ContentHash      string    `json:"contentHash"`
	Status           Status    `json:"status"`
	DetectedLanguage *string   `json:"detectedLanguage,omitempty"`
	PageCount        *int      `json:"pageCount,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
}

// ProcessingResult records one extraction attempt for a document. Rows are
// immutable once written; the newest row per document is authoritative.
type ProcessingResult struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"documentId"`
	Processor    string    `json:"processor"`
	Text         *string   `json:"text,omitempty"`
	MetadataJSON string    `json:"metadata,omitempty"`
	Confidence   float64   `json:"confidence"`
	DurationMS   int64     `json:"durationMs"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
