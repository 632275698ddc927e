package flight

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrEmptyKey is returned when RunOnce is called with an empty key.
	ErrEmptyKey = errors.New("flight: empty key")

	// ErrNilFunc is returned when RunOnce is called without a computation.
	ErrNilFunc = errors.New("flight: nil computation")

	// ErrNilRegistry is returned when RunOnce is called on a nil registry.
	ErrNilRegistry = errors.New("flight: nil registry")

	// ErrTypeMismatch is returned by Wait when the caller asks for a result
	// type other than the one the running computation produces.
	ErrTypeMismatch = errors.New("flight: result type mismatch")
)

// ComputationError is the failure every caller joined to a computation
// observes when it returns an error or panics.
type ComputationError struct {
	Key string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("flight: computation for %q failed: %v", e.Key, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// PanicError records a panic recovered from a computation.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("flight: computation panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err carries a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
