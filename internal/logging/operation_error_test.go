package logging

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestOperationErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "with request id",
			err:      NewOperationError("hasface.detect", "req-1", errors.New("connection refused")),
			contains: []string{"hasface.detect", "request_id=req-1", "connection refused"},
		},
		{
			name:     "without request id",
			err:      NewOperationError("hasface.open_image", "", errors.New("no such file")),
			contains: []string{"hasface.open_image: no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(msg, substr) {
					t.Errorf("error %q does not contain %q", msg, substr)
				}
			}
		})
	}
}

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("op", "req", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewOperationError("op", "req", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Op != "op" || opErr.RequestID != "req" {
		t.Fatalf("unexpected fields: %+v", opErr)
	}
}

func TestNewOperationErrorDoesNotStackSameOperation(t *testing.T) {
	cause := errors.New("boom")
	inner := NewOperationError("op", "", cause)
	outer := NewOperationError("op", "req-9", inner)

	var opErr *OperationError
	if !errors.As(outer, &opErr) {
		t.Fatalf("expected OperationError, got %T", outer)
	}
	if opErr.Err != cause {
		t.Fatalf("expected cause to be preserved, got %v", opErr.Err)
	}
	if opErr.RequestID != "req-9" {
		t.Fatalf("expected request id to be filled in, got %q", opErr.RequestID)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}
