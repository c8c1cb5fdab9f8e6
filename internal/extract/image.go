package extract

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nordquist/paperflow/internal/model"
	"github.com/nordquist/paperflow/internal/ocr"
)

// ImageProcessor delegates raster images to the OCR provider. An empty OCR
// result is not an error: it is recorded as "no text detected".
type ImageProcessor struct {
	provider ocr.Provider
	opts     ocr.Options
	log      *slog.Logger

	// Text and metadata extraction run concurrently on the same path and
	// both need the OCR result, so one invocation is shared per path.
	mu   sync.Mutex
	runs map[string]*ocrRun
}

type ocrRun struct {
	once sync.Once
	res  *ocr.Result
	err  error
}

// NewImageProcessor constructs the processor.
func NewImageProcessor(provider ocr.Provider, opts ocr.Options, log *slog.Logger) *ImageProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &ImageProcessor{
		provider: provider,
		opts:     opts,
		log:      log,
		runs:     make(map[string]*ocrRun),
	}
}

func (p *ImageProcessor) Type() string { return "image-ocr-v1" }

func (p *ImageProcessor) ContentTypes() []string {
	return []string{"image/png", "image/jpeg", "image/tiff"}
}

// ExtractText returns the recognized text; empty when OCR found none or
// reported a content-level failure.
func (p *ImageProcessor) ExtractText(ctx context.Context, path string) (string, error) {
	res, err := p.run(ctx, path)
	if err != nil {
		return "", err
	}
	if !res.Success {
		p.log.Warn("ocr reported failure", "path", path, "error", res.ErrorMessage)
		return "", nil
	}
	return res.Text, nil
}

// ExtractMetadata records the OCR quality signals in the property bag.
func (p *ImageProcessor) ExtractMetadata(ctx context.Context, path string) (model.DocumentMetadata, error) {
	res, err := p.run(ctx, path)
	if err != nil {
		return model.DocumentMetadata{}, err
	}
	md := model.DocumentMetadata{PageCount: 1}
	md.SetProperty("OcrConfidence", model.Float(res.Confidence))
	md.SetProperty("OcrWordCount", model.Int(int64(res.WordCount)))
	md.SetProperty("OcrLineCount", model.Int(int64(res.LineCount)))
	if res.DetectedLanguage != "" {
		md.SetProperty("OcrDetectedLanguage", model.String(res.DetectedLanguage))
	}
	if len(res.Warnings) > 0 {
		md.SetProperty("OcrWarnings", model.Strings(res.Warnings))
	}
	if !res.Success {
		md.SetProperty("OcrError", model.String(res.ErrorMessage))
	} else if res.Text == "" {
		md.SetProperty("OcrNote", model.String("no text detected"))
	}
	return md, nil
}

// run performs OCR once per path and shares the result between the
// concurrent text and metadata calls.
func (p *ImageProcessor) run(ctx context.Context, path string) (*ocr.Result, error) {
	p.mu.Lock()
	if len(p.runs) > 64 {
		p.runs = make(map[string]*ocrRun)
	}
	r, ok := p.runs[path]
	if !ok {
		r = &ocrRun{}
		p.runs[path] = r
	}
	p.mu.Unlock()

	r.once.Do(func() {
		r.res, r.err = p.provider.ExtractText(ctx, path, p.opts)
		if r.err == nil {
			for _, w := range r.res.Warnings {
				p.log.Warn("ocr warning", "path", path, "warning", w)
			}
		}
	})
	return r.res, r.err
}
