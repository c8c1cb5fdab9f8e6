package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"github.com/nordquist/paperflow/internal/model"
)

// csvRowLimit caps how many CSV rows are rendered into the full text. The
// remainder is summarized by a truncation notice.
const csvRowLimit = 1000

// TextProcessor handles plain text and delimited text. Encoding is detected
// from the byte-order mark before falling back to UTF-8.
type TextProcessor struct{}

// NewTextProcessor constructs the processor.
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

func (p *TextProcessor) Type() string { return "text-v1" }

func (p *TextProcessor) ContentTypes() []string {
	return []string{"text/plain", "text/csv"}
}

// ExtractText decodes the file and, for CSV, renders parsed rows.
func (p *TextProcessor) ExtractText(ctx context.Context, path string) (string, error) {
	content, _, err := decodeFile(path)
	if err != nil {
		return "", err
	}
	if isCSVPath(path) {
		return renderCSV(content)
	}
	return content, nil
}

// ExtractMetadata classifies the content and fills the custom-property bag.
func (p *TextProcessor) ExtractMetadata(ctx context.Context, path string) (model.DocumentMetadata, error) {
	content, encodingName, err := decodeFile(path)
	if err != nil {
		return model.DocumentMetadata{}, err
	}
	md := model.DocumentMetadata{}
	md.SetProperty("Encoding", model.String(encodingName))
	lines := strings.Split(content, "\n")
	md.SetProperty("LineCount", model.Int(int64(len(lines))))
	if n := len(content) / 2500; n > 1 {
		md.PageCount = n
	} else {
		md.PageCount = 1
	}

	if isCSVPath(path) {
		rows, err := parseCSV(content)
		if err != nil {
			return md, err
		}
		md.SetProperty("CsvRowCount", model.Int(int64(len(rows))))
		if len(rows) > 0 {
			md.SetProperty("CsvColumnCount", model.Int(int64(len(rows[0]))))
		}
		md.SetProperty("HasHeader", model.Bool(detectHeader(rows)))
		return md, nil
	}
	md.SetProperty("ContentStructure", model.String(classifyStructure(lines)))
	return md, nil
}

func isCSVPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// decodeFile reads the file and decodes it according to its BOM, defaulting
// to UTF-8. Returns the decoded text and the detected encoding name.
func decodeFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	name, dec := detectEncoding(data)
	if dec == nil {
		return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), name, nil
	}
	decoded, err := dec.Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(decoded), name, nil
}

// detectEncoding inspects the byte-order mark. UTF-32 LE must be tested
// before UTF-16 LE because their BOMs share a prefix.
func detectEncoding(data []byte) (string, *encoding.Decoder) {
	switch {
	case len(data) >= 4 && data[0] == 0xFF && data[1] == 0xFE && data[2] == 0x00 && data[3] == 0x00:
		return "utf-32le", utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder()
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return "utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return "utf-16be", unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	default:
		return "utf-8", nil
	}
}

func parseCSV(content string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// renderCSV flattens rows into pipe-delimited lines, capped at csvRowLimit.
func renderCSV(content string) (string, error) {
	rows, err := parseCSV(content)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	limit := len(rows)
	if limit > csvRowLimit {
		limit = csvRowLimit
	}
	for _, row := range rows[:limit] {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	if len(rows) > csvRowLimit {
		sb.WriteString(fmt.Sprintf("[TRUNCATED - showing %d of %d rows]\n", csvRowLimit, len(rows)))
	}
	return sb.String(), nil
}

// detectHeader classifies the first row as a header when it contains
// strictly fewer numeric fields than the second row.
func detectHeader(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	return numericFields(rows[0]) < numericFields(rows[1])
}

func numericFields(row []string) int {
	n := 0
	for _, f := range row {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err == nil {
			n++
		}
	}
	return n
}

// classifyStructure buckets plain text into list, technical, prose, or plain
// based on line-shape ratios.
func classifyStructure(lines []string) string {
	var total, bullets, indented, sentences int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		total++
		if isBulletLine(trimmed) {
			bullets++
		}
		if line != trimmed && (strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")) {
			indented++
		}
		if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "?") ||
			strings.HasSuffix(trimmed, "!") || strings.Contains(trimmed, ". ") {
			sentences++
		}
	}
	if total == 0 {
		return "plain"
	}
	switch {
	case float64(bullets)/float64(total) > 0.4:
		return "list"
	case float64(indented)/float64(total) > 0.3:
		return "technical"
	case float64(sentences)/float64(total) > 0.5:
		return "prose"
	default:
		return "plain"
	}
}

func isBulletLine(line string) bool {
	for _, prefix := range []string{"- ", "* ", "+ ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	// Numbered list entries: "1. ", "12) ".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return i+1 >= len(line) || line[i+1] == ' '
	}
	return false
}
