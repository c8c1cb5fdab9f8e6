// Package validation enforces upload guardrails before any record is created.
package validation

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrTypeNotAllowed  = errors.New("content type not allowed")
	ErrMissingFileName = errors.New("file name is required")
)

// Validator checks uploads against configured limits.
type Validator struct {
	maxBytes     int64
	allowedTypes map[string]struct{}
}

// New builds a Validator. An empty allowed list permits every content type.
func New(maxBytes int64, allowedTypes []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		if t != "" {
			allowed[t] = struct{}{}
		}
	}
	return &Validator{maxBytes: maxBytes, allowedTypes: allowed}
}

// ValidateUpload rejects empty, oversized, unnamed, or disallowed uploads.
func (v *Validator) ValidateUpload(size int64, fileName, contentType string) error {
	if fileName == "" {
		return ErrMissingFileName
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, v.maxBytes)
	}
	if len(v.allowedTypes) > 0 {
		if _, ok := v.allowedTypes[contentType]; !ok {
			return fmt.Errorf("%w: %s", ErrTypeNotAllowed, contentType)
		}
	}
	return nil
}
