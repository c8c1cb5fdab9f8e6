package validation

import (
	"errors"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	v := New(1024, []string{"application/pdf", "text/plain"})
	tests := []struct {
		name        string
		size        int64
		fileName    string
		contentType string
		wantErr     error
	}{
		{"valid pdf", 512, "report.pdf", "application/pdf", nil},
		{"empty file", 0, "empty.pdf", "application/pdf", ErrEmptyFile},
		{"oversized", 2048, "big.pdf", "application/pdf", ErrFileTooLarge},
		{"disallowed type", 100, "cat.png", "image/png", ErrTypeNotAllowed},
		{"missing name", 100, "", "application/pdf", ErrMissingFileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.size, tt.fileName, tt.contentType)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmptyAllowListPermitsEverything(t *testing.T) {
	v := New(1024, nil)
	if err := v.ValidateUpload(10, "x.bin", "application/x-unknown"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
