package extract

import (
	"context"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/nordquist/paperflow/internal/model"
)

// PDFProcessor extracts text page by page and reads the document info
// dictionary. A single page failing to extract is recorded inline and does
// not abort the rest of the document.
type PDFProcessor struct{}

// NewPDFProcessor constructs the processor.
func NewPDFProcessor() *PDFProcessor {
	return &PDFProcessor{}
}

func (p *PDFProcessor) Type() string { return "pdf-v1" }

func (p *PDFProcessor) ContentTypes() []string {
	return []string{"application/pdf"}
}

// pageSource abstracts the page loop so the renderer can be exercised
// without a real PDF on disk.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// ExtractText returns the text of every page, each prefixed with a
// [PAGE n] marker.
func (p *PDFProcessor) ExtractText(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return renderPages(&pdfReaderSource{r: r}), nil
}

// renderPages walks all pages, tolerating per-page failures.
func renderPages(src pageSource) string {
	var sb strings.Builder
	total := src.NumPage()
	for page := 1; page <= total; page++ {
		content, err := src.PageText(page)
		if err != nil {
			sb.WriteString(fmt.Sprintf("[PAGE %d - ERROR: %v]\n", page, err))
			continue
		}
		sb.WriteString(fmt.Sprintf("[PAGE %d]\n", page))
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String()
}

type pdfReaderSource struct {
	r *pdf.Reader
}

func (s *pdfReaderSource) NumPage() int { return s.r.NumPage() }

// PageText extracts one page. ledongthuc/pdf panics on some malformed
// content streams, so the recover turns that into a per-page error.
func (s *pdfReaderSource) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	page := s.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// ExtractMetadata reads the info dictionary plus PDF-specific flags
// (version, encryption state, interactive form fields).
func (p *PDFProcessor) ExtractMetadata(ctx context.Context, path string) (model.DocumentMetadata, error) {
	md := model.DocumentMetadata{}
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return md, fmt.Errorf("read pdf context: %w", err)
	}
	md.Title = pdfCtx.Title
	md.Author = pdfCtx.Author
	md.Subject = pdfCtx.Subject
	md.Creator = pdfCtx.Creator
	md.Producer = pdfCtx.Producer
	if t, ok := types.DateTime(pdfCtx.CreationDate, true); ok {
		md.CreatedAt = &t
	}
	if t, ok := types.DateTime(pdfCtx.ModDate, true); ok {
		md.ModifiedAt = &t
	}
	md.PageCount = pdfCtx.PageCount
	if md.PageCount < 1 {
		md.PageCount = 1
	}
	if pdfCtx.HeaderVersion != nil {
		md.SetProperty("PDFVersion", model.String(pdfCtx.HeaderVersion.String()))
	}
	md.SetProperty("Encrypted", model.Bool(pdfCtx.Encrypt != nil))
	if catalog, err := pdfCtx.Catalog(); err == nil {
		_, hasForm := catalog.Find("AcroForm")
		md.SetProperty("HasAcroForm", model.Bool(hasForm))
	}
	return md, nil
}
