package flight

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestComputationError(t *testing.T) {
	err := &ComputationError{Key: "user:42", Err: io.EOF}

	if !errors.Is(err, io.EOF) {
		t.Error("ComputationError should unwrap to the computation's error")
	}
	if !strings.Contains(err.Error(), "user:42") {
		t.Errorf("Error() = %q, want key in message", err.Error())
	}
}

func TestPanicError_Unwrap(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  error
	}{
		{name: "error value", value: io.ErrUnexpectedEOF, want: io.ErrUnexpectedEOF},
		{name: "string value", value: "oops", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := &PanicError{Value: tt.value}
			if got := pe.Unwrap(); got != tt.want {
				t.Errorf("Unwrap() = %v, want %v", got, tt.want)
			}
			if !IsPanic(&ComputationError{Key: "k", Err: pe}) {
				t.Error("IsPanic() should see through ComputationError")
			}
		})
	}
}
