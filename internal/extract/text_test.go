package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/nordquist/paperflow/internal/model"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func utf16leBytes(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, u := range utf16.Encode([]rune(s)) {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

func TestExtractTextUTF16LE(t *testing.T) {
	const want = "héllo wörld"
	path := writeTemp(t, "bom.txt", utf16leBytes(want))
	p := NewTextProcessor()

	got, err := p.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}

	md, err := p.ExtractMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if v, ok := md.Property("Encoding"); !ok || v.Str != "utf-16le" {
		t.Fatalf("Encoding = %+v, ok=%v", v, ok)
	}
}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8 plain", []byte("plain"), "utf-8"},
		{"utf-8 bom", []byte{0xEF, 0xBB, 0xBF, 'a'}, "utf-8"},
		{"utf-16le", []byte{0xFF, 0xFE, 'a', 0x00}, "utf-16le"},
		{"utf-16be", []byte{0xFE, 0xFF, 0x00, 'a'}, "utf-16be"},
		{"utf-32le", []byte{0xFF, 0xFE, 0x00, 0x00, 'a', 0x00, 0x00, 0x00}, "utf-32le"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if name, _ := detectEncoding(tt.data); name != tt.want {
				t.Fatalf("encoding = %s, want %s", name, tt.want)
			}
		})
	}
}

func TestCSVHeaderHeuristic(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want bool
	}{
		{"text header over numeric row", [][]string{{"Name", "Age"}, {"Alice", "30"}}, true},
		{"all numeric", [][]string{{"1", "2"}, {"3", "4"}}, false},
		{"single row", [][]string{{"Name", "Age"}}, false},
		{"numeric first row", [][]string{{"1", "2"}, {"Alice", "Bob"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectHeader(tt.rows); got != tt.want {
				t.Fatalf("detectHeader = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCSVQuotedFields(t *testing.T) {
	csvData := "Name,Quote\n\"Doe, Jane\",\"said \"\"hi\"\"\"\n"
	path := writeTemp(t, "quotes.csv", []byte(csvData))
	p := NewTextProcessor()
	text, err := p.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Doe, Jane") {
		t.Fatalf("quoted comma not preserved: %q", text)
	}
}

func TestCSVTruncation(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("a,b\n")
	for i := 0; i < 1500; i++ {
		sb.WriteString("1,2\n")
	}
	path := writeTemp(t, "big.csv", []byte(sb.String()))
	p := NewTextProcessor()
	text, err := p.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "[TRUNCATED") {
		t.Fatal("expected truncation notice")
	}
	if lines := strings.Count(text, "\n"); lines > csvRowLimit+1 {
		t.Fatalf("rendered %d lines, want at most %d", lines, csvRowLimit+1)
	}
}

func TestCSVMetadata(t *testing.T) {
	path := writeTemp(t, "people.csv", []byte("Name,Age\nAlice,30\nBob,41\n"))
	p := NewTextProcessor()
	md, err := p.ExtractMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	assertIntProp(t, md, "CsvRowCount", 3)
	assertIntProp(t, md, "CsvColumnCount", 2)
	if v, ok := md.Property("HasHeader"); !ok || !v.Bool {
		t.Fatalf("HasHeader = %+v, ok=%v", v, ok)
	}
}

func assertIntProp(t *testing.T, md model.DocumentMetadata, key string, want int64) {
	t.Helper()
	v, ok := md.Property(key)
	if !ok || v.Int != want {
		t.Fatalf("%s = %+v (ok=%v), want %d", key, v, ok, want)
	}
}

func TestClassifyStructure(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"bullet list", []string{"- one", "- two", "- three", "intro"}, "list"},
		{"numbered list", []string{"1. one", "2. two", "3) three"}, "list"},
		{"prose", []string{"This is a sentence.", "And another one follows here."}, "prose"},
		{"indented code", []string{"func main() {", "\tdoThing()", "\treturn", "}"}, "technical"},
		{"empty", nil, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStructure(tt.lines); got != tt.want {
				t.Fatalf("classifyStructure = %s, want %s", got, tt.want)
			}
		})
	}
}
