package repository

import (
	"testing"
	"time"

	"github.com/nordquist/paperflow/internal/model"
)

func TestTerminalTimestamp(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		status model.Status
		set    bool
	}{
		{model.StatusPending, false},
		{model.StatusProcessing, false},
		{model.StatusCompleted, true},
		{model.StatusFailed, true},
		{model.StatusCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := terminalTimestamp(tt.status, now)
			if tt.set {
				if got == nil || !got.Equal(now) {
					t.Fatalf("processed_at = %v, want %v", got, now)
				}
				return
			}
			if got != nil {
				t.Fatalf("processed_at = %v, want nil", got)
			}
		})
	}
}
