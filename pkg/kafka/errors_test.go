package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"explicit transient", NewTransientError("db down", errors.New("x")), ErrorTypeTransient},
		{"explicit permanent", NewPermanentError("bad payload", errors.New("x")), ErrorTypePermanent},
		{"wrapped transient", fmt.Errorf("insert: %w", NewTransientError("db", nil)), ErrorTypeTransient},
		{"deadline", fmt.Errorf("write: %w", context.DeadlineExceeded), ErrorTypeTransient},
		{"connection refused", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("something odd"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("timeout", nil)

	if !ShouldRetry(transient, 0, 3) {
		t.Error("expected retry for transient error under the limit")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Error("expected no retry once the limit is reached")
	}
	if ShouldRetry(NewPermanentError("bad", nil), 0, 3) {
		t.Error("expected no retry for permanent error")
	}
	if ShouldRetry(nil, 0, 3) {
		t.Error("expected no retry for nil error")
	}
}
