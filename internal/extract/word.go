package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nordquist/paperflow/internal/model"
)

const wordContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// WordProcessor extracts text and properties from OOXML word-processing
// packages (.docx). The package is a zip of XML parts; the body is walked
// recursively so text survives arbitrary nesting, tables are flattened to
// pipe-delimited rows between explicit markers, and page breaks become
// [PAGE BREAK] lines.
type WordProcessor struct{}

// NewWordProcessor constructs the processor.
func NewWordProcessor() *WordProcessor {
	return &WordProcessor{}
}

func (p *WordProcessor) Type() string { return "word-v1" }

func (p *WordProcessor) ContentTypes() []string {
	return []string{wordContentType}
}

// ExtractText renders word/document.xml as plain text.
func (p *WordProcessor) ExtractText(ctx context.Context, path string) (string, error) {
	body, err := readZipPart(path, "word/document.xml")
	if err != nil {
		return "", err
	}
	var root wmlNode
	if err := xml.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("parse document body: %w", err)
	}
	var sb strings.Builder
	renderNode(&root, &sb)
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

// ExtractMetadata reads docProps/core.xml and docProps/app.xml, falling back
// to body inspection for the page count.
func (p *WordProcessor) ExtractMetadata(ctx context.Context, path string) (model.DocumentMetadata, error) {
	md := model.DocumentMetadata{}

	var core docCoreProps
	if data, err := readZipPart(path, "docProps/core.xml"); err == nil {
		if err := xml.Unmarshal(data, &core); err == nil {
			md.Title = core.Title
			md.Author = core.Creator
			md.Subject = core.Subject
			md.CreatedAt = parseW3CDate(core.Created)
			md.ModifiedAt = parseW3CDate(core.Modified)
			if core.LastModifiedBy != "" {
				md.SetProperty("LastModifiedBy", model.String(core.LastModifiedBy))
			}
			if core.Keywords != "" {
				md.SetProperty("Keywords", model.String(core.Keywords))
			}
		}
	}

	var app docAppProps
	if data, err := readZipPart(path, "docProps/app.xml"); err == nil {
		if err := xml.Unmarshal(data, &app); err == nil {
			if app.Application != "" {
				md.Creator = app.Application
			}
			if app.Words > 0 {
				md.SetProperty("WordCount", model.Int(int64(app.Words)))
			}
			if app.Company != "" {
				md.SetProperty("Company", model.String(app.Company))
			}
		}
	}

	md.PageCount = p.pageCount(ctx, path, app.Pages)
	return md, nil
}

// pageCount prefers the explicit app property, then page-break markers plus
// section boundaries, then a conservative size-based estimate.
func (p *WordProcessor) pageCount(ctx context.Context, path string, explicit int) int {
	if explicit > 0 {
		return explicit
	}
	body, err := readZipPart(path, "word/document.xml")
	if err != nil {
		return 1
	}
	var root wmlNode
	if err := xml.Unmarshal(body, &root); err != nil {
		return 1
	}
	breaks, sections := countBoundaries(&root)
	if breaks+sections > 0 {
		return breaks + sections
	}
	var sb strings.Builder
	renderNode(&root, &sb)
	if n := sb.Len() / 2500; n > 1 {
		return n
	}
	return 1
}

// wmlNode is a generic WordprocessingML element. Mixed content collects into
// Text, child elements into Nodes.
type wmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []wmlNode  `xml:",any"`
}

func (n *wmlNode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// renderNode walks the body recursively. Every text-bearing leaf contributes
// characters; paragraphs emit line breaks; tables are bracketed by explicit
// markers so structure survives the flattening.
func renderNode(n *wmlNode, sb *strings.Builder) {
	switch n.XMLName.Local {
	case "t":
		sb.WriteString(n.Text)
		return
	case "tab":
		sb.WriteString("\t")
		return
	case "br":
		if n.attr("type") == "page" {
			sb.WriteString("\n[PAGE BREAK]\n")
		} else {
			sb.WriteString("\n")
		}
		return
	case "tbl":
		renderTable(n, sb)
		return
	case "p":
		for i := range n.Nodes {
			renderNode(&n.Nodes[i], sb)
		}
		sb.WriteString("\n")
		return
	}
	for i := range n.Nodes {
		renderNode(&n.Nodes[i], sb)
	}
}

func renderTable(tbl *wmlNode, sb *strings.Builder) {
	sb.WriteString("[TABLE START]\n")
	for i := range tbl.Nodes {
		row := &tbl.Nodes[i]
		if row.XMLName.Local != "tr" {
			continue
		}
		var cells []string
		for j := range row.Nodes {
			cell := &row.Nodes[j]
			if cell.XMLName.Local != "tc" {
				continue
			}
			var cellText strings.Builder
			for k := range cell.Nodes {
				renderNode(&cell.Nodes[k], &cellText)
			}
			cells = append(cells, strings.TrimSpace(strings.ReplaceAll(cellText.String(), "\n", " ")))
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}
	sb.WriteString("[TABLE END]\n")
}

// countBoundaries returns explicit page breaks and section boundaries.
func countBoundaries(n *wmlNode) (breaks, sections int) {
	if n.XMLName.Local == "br" && n.attr("type") == "page" {
		breaks++
	}
	if n.XMLName.Local == "sectPr" {
		sections++
	}
	for i := range n.Nodes {
		b, s := countBoundaries(&n.Nodes[i])
		breaks += b
		sections += s
	}
	return breaks, sections
}

type docCoreProps struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

type docAppProps struct {
	Application string `xml:"Application"`
	Company     string `xml:"Company"`
	Pages       int    `xml:"Pages"`
	Words       int    `xml:"Words"`
}

func parseW3CDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func readZipPart(path, name string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("package part %s not found", name)
}
