package main

import (
	"mime"
	"testing"
)

func TestDetectContentType(t *testing.T) {
	// Registered types pick up a charset parameter; lookup keys in the
	// processor registry are bare media types.
	if err := mime.AddExtensionType(".txt", "text/plain"); err != nil {
		t.Fatalf("register extension: %v", err)
	}
	tests := []struct {
		name     string
		path     string
		override string
		want     string
	}{
		{"txt drops charset", "notes.txt", "", "text/plain"},
		{"pdf", "report.pdf", "", "application/pdf"},
		{"override wins", "report.pdf", "text/plain", "text/plain"},
		{"override params stripped", "x.bin", "text/plain; charset=utf-8", "text/plain"},
		{"unknown extension", "blob.xyz123", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectContentType(tt.path, tt.override); got != tt.want {
				t.Fatalf("detectContentType = %q, want %q", got, tt.want)
			}
		})
	}
}
