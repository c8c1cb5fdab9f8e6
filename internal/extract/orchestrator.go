package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nordquist/paperflow/internal/model"
)

// Outcome is the result of one extraction attempt, success or failure.
type Outcome struct {
	Success      bool
	Processor    string
	Text         string
	Metadata     model.DocumentMetadata
	WordCount    int
	CharCount    int
	Confidence   float64
	Elapsed      time.Duration
	ErrorMessage string
}

// Orchestrator dispatches documents to format processors and scores the
// extraction quality.
type Orchestrator struct {
	registry *Registry
	log      *slog.Logger
}

// NewOrchestrator builds an orchestrator over a populated registry.
func NewOrchestrator(registry *Registry, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{registry: registry, log: log}
}

// Process runs text and metadata extraction for one file. Failures of any
// kind, including an unregistered content type and processor panics, are
// returned as failed outcomes; Process never returns an error to the caller.
func (o *Orchestrator) Process(ctx context.Context, path, fileName, contentType string) Outcome {
	start := time.Now()
	proc, ok := o.registry.Lookup(contentType)
	if !ok {
		o.log.Warn("no processor registered", "contentType", contentType, "fileName", fileName)
		return Outcome{
			Elapsed:      time.Since(start),
			ErrorMessage: fmt.Sprintf("%v: %s", ErrUnsupportedFormat, contentType),
		}
	}

	var (
		text string
		md   model.DocumentMetadata
	)
	// Text and metadata extraction are independent reads of the same file,
	// so they run concurrently against the same processor.
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		defer recoverAs(&err, "text extraction")
		text, err = proc.ExtractText(gctx, path)
		return err
	})
	eg.Go(func() (err error) {
		defer recoverAs(&err, "metadata extraction")
		md, err = proc.ExtractMetadata(gctx, path)
		return err
	})
	if err := eg.Wait(); err != nil {
		o.log.Error("extraction failed", "fileName", fileName, "processor", proc.Type(), "error", err)
		return Outcome{
			Processor:    proc.Type(),
			Elapsed:      time.Since(start),
			ErrorMessage: err.Error(),
		}
	}

	if md.PageCount < 1 {
		// Unknown page counts report 1, never 0.
		md.PageCount = 1
	}
	out := Outcome{
		Success:    true,
		Processor:  proc.Type(),
		Text:       text,
		Metadata:   md,
		WordCount:  len(strings.Fields(text)),
		CharCount:  len(text),
		Confidence: confidenceScore(text, md),
		Elapsed:    time.Since(start),
	}
	o.log.Info("extraction complete",
		"fileName", fileName,
		"processor", proc.Type(),
		"words", out.WordCount,
		"confidence", out.Confidence,
		"elapsed", out.Elapsed)
	return out
}

func recoverAs(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", op, r)
	}
}

// Confidence bonus weights. The score is a heuristic proxy for extraction
// quality, not a probability: callers may rely on the [0,1] bounds and on
// richer extractions scoring no lower than poorer ones, but not on exact
// values.
const (
	confidenceBase    = 0.5
	bonusHasText      = 0.15
	bonusLongText     = 0.10
	bonusStructured   = 0.10
	bonusPageCount    = 0.05
	bonusTitle        = 0.05
	bonusAuthor       = 0.05
	longTextThreshold = 200
)

func confidenceScore(text string, md model.DocumentMetadata) float64 {
	score := confidenceBase
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		score += bonusHasText
	}
	if len(trimmed) > longTextThreshold {
		score += bonusLongText
	}
	if strings.ContainsAny(trimmed, "\n") || strings.Contains(trimmed, ". ") ||
		strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "!") {
		score += bonusStructured
	}
	if md.PageCount > 0 {
		score += bonusPageCount
	}
	if md.Title != "" {
		score += bonusTitle
	}
	if md.Author != "" {
		score += bonusAuthor
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
