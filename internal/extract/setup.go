package extract

import (
	"log/slog"

	"github.com/nordquist/paperflow/internal/ocr"
)

// BuildRegistry registers the built-in processors. The image processor is
// optional: with a nil OCR provider, image uploads resolve to unsupported
// instead of crashing.
func BuildRegistry(ocrProvider ocr.Provider, ocrOpts ocr.Options, log *slog.Logger) (*Registry, error) {
	registry := NewRegistry()
	for _, p := range []Processor{
		NewWordProcessor(),
		NewPDFProcessor(),
		NewTextProcessor(),
	} {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	if ocrProvider != nil {
		if err := registry.Register(NewImageProcessor(ocrProvider, ocrOpts, log)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
