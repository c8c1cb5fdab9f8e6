// Package ocr defines the OCR provider contract and its tesseract-backed
// implementation.
package ocr

import "context"

// Options tune a single OCR invocation.
type Options struct {
	Language          string
	DetectOrientation bool
	Preprocess        bool
}

// Result is a well-formed OCR response. Success=false with an ErrorMessage
// is a content-level failure the caller logs and records; it is distinct
// from a returned error, which signals the provider itself broke.
type Result struct {
	Success          bool
	Text             string
	Confidence       float64
	WordCount        int
	LineCount        int
	DetectedLanguage string
	Warnings         []string
	ErrorMessage     string
}

// Provider turns a raster image into text plus quality signals.
type Provider interface {
	ExtractText(ctx context.Context, path string, opts Options) (*Result, error)
}
