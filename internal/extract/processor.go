// Package extract implements the document extraction pipeline: a registry of
// format processors and the orchestrator that runs them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nordquist/paperflow/internal/model"
)

// ErrUnsupportedFormat is returned when no processor is registered for a
// content type. The orchestrator converts it into a failed outcome instead
// of letting it escape.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Processor extracts text and normalized metadata from a file on disk.
// Implementations must be safe for concurrent use against the same path,
// because the orchestrator runs both extractions at once.
type Processor interface {
	// Type tags results with the processor name and version.
	Type() string
	// ContentTypes lists the MIME types this processor handles.
	ContentTypes() []string
	ExtractText(ctx context.Context, path string) (string, error)
	ExtractMetadata(ctx context.Context, path string) (model.DocumentMetadata, error)
}

// Registry maps content types to processors. Registration happens once at
// startup; lookups afterwards are read-only.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register binds a processor to each of its content types. Re-registering a
// type is a programming error.
func (r *Registry) Register(p Processor) error {
	for _, ct := range p.ContentTypes() {
		if _, exists := r.processors[ct]; exists {
			return fmt.Errorf("content type %q already registered", ct)
		}
		r.processors[ct] = p
	}
	return nil
}

// Lookup returns the processor for a content type.
func (r *Registry) Lookup(contentType string) (Processor, bool) {
	p, ok := r.processors[contentType]
	return p, ok
}

// ContentTypes returns the registered types, sorted for stable logging.
func (r *Registry) ContentTypes() []string {
	out := make([]string, 0, len(r.processors))
	for ct := range r.processors {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}
