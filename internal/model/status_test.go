package model

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to completed skips processing", StatusPending, StatusCompleted, false},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to cancelled", StatusProcessing, StatusCancelled, true},
		{"completed back to processing", StatusCompleted, StatusProcessing, false},
		{"completed resubmitted", StatusCompleted, StatusPending, true},
		{"failed resubmitted", StatusFailed, StatusPending, true},
		{"cancelled resubmitted", StatusCancelled, StatusPending, true},
		{"failed to completed", StatusFailed, StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}
