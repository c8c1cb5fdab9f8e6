package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is the gosseract-backed Provider. Each call builds its own
// client, so the provider is safe for concurrent use.
type Tesseract struct {
	defaultLanguage string
}

// NewTesseract constructs the provider with a default language hint.
func NewTesseract(defaultLanguage string) *Tesseract {
	if defaultLanguage == "" {
		defaultLanguage = "eng"
	}
	return &Tesseract{defaultLanguage: defaultLanguage}
}

// ExtractText runs tesseract over the image. Recognition failures come back
// as Success=false results; only setup problems surface as errors.
func (t *Tesseract) ExtractText(ctx context.Context, path string, opts Options) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	lang := opts.Language
	if lang == "" {
		lang = t.defaultLanguage
	}
	res := &Result{DetectedLanguage: lang}

	if err := client.SetLanguage(lang); err != nil {
		return nil, err
	}
	mode := gosseract.PSM_AUTO
	if opts.DetectOrientation {
		mode = gosseract.PSM_AUTO_OSD
	}
	if err := client.SetPageSegMode(mode); err != nil {
		res.Warnings = append(res.Warnings, "page segmentation mode not applied: "+err.Error())
	}
	if opts.Preprocess {
		// Hint a working DPI for images without resolution metadata.
		if err := client.SetVariable("user_defined_dpi", "300"); err != nil {
			res.Warnings = append(res.Warnings, "dpi hint not applied: "+err.Error())
		}
	}
	if err := client.SetImage(path); err != nil {
		return nil, err
	}

	text, err := client.Text()
	if err != nil {
		res.ErrorMessage = err.Error()
		return res, nil
	}
	text = strings.TrimSpace(text)
	res.Success = true
	res.Text = text
	res.WordCount = len(strings.Fields(text))
	res.LineCount = countLines(text)
	res.Confidence = meanWordConfidence(client, res)
	return res, nil
}

// meanWordConfidence averages per-word recognition confidence into [0,1].
func meanWordConfidence(client *gosseract.Client, res *Result) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		res.Warnings = append(res.Warnings, "word confidence unavailable: "+err.Error())
		return 0
	}
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100.0
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
