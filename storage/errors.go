package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for storage operations.
var (
	// ErrInvalidArgument is matched by every argument validation failure.
	ErrInvalidArgument = errors.New("storage: invalid argument")

	// ErrInvalidKey indicates an empty, blank or malformed key.
	ErrInvalidKey = fmt.Errorf("%w: key is invalid", ErrInvalidArgument)

	// ErrKeyTooLong indicates a key longer than MaxKeyLength.
	ErrKeyTooLong = fmt.Errorf("%w: key exceeds max length", ErrInvalidArgument)

	// ErrInvalidTTL indicates a zero or negative time-to-live.
	ErrInvalidTTL = fmt.Errorf("%w: ttl must be positive", ErrInvalidArgument)

	// ErrTypeMismatch indicates a stored value was requested as a different type.
	ErrTypeMismatch = errors.New("storage: stored value type mismatch")

	// ErrReadFailure is matched by backend lookup failures. It is distinct from a miss.
	ErrReadFailure = errors.New("storage: read failed")

	// ErrWriteFailure is matched by backend set and remove failures.
	ErrWriteFailure = errors.New("storage: write failed")

	// ErrNilStorage indicates a nil Storage was provided.
	ErrNilStorage = errors.New("storage: storage is nil")
)

// Op names a storage operation for error reporting.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpRemove Op = "remove"
)

// OpError describes a failed backend operation.
//
// It matches ErrReadFailure for OpGet and ErrWriteFailure otherwise, and
// unwraps to the backend error.
type OpError struct {
	Op      Op
	Backend string
	Key     string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("storage: %s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

// Unwrap exposes both the failure class and the underlying error.
func (e *OpError) Unwrap() []error {
	kind := ErrWriteFailure
	if e.Op == OpGet {
		kind = ErrReadFailure
	}
	return []error{kind, e.Err}
}

// ReadError wraps a backend lookup failure.
func ReadError(backend, key string, err error) error {
	return &OpError{Op: OpGet, Backend: backend, Key: key, Err: err}
}

// WriteError wraps a backend set or remove failure.
func WriteError(backend string, op Op, key string, err error) error {
	return &OpError{Op: op, Backend: backend, Key: key, Err: err}
}
