package storage

import (
	"fmt"
	"reflect"
	"time"
)

// Value is a stored payload tagged with its declared Go type.
//
// In-process backends keep the Go value itself. Byte-oriented backends
// produce values holding the encoded payload and the codec needed to decode it.
// The zero Value carries no type and decodes to nothing.
type Value struct {
	typeName string
	obj      any
	local    bool
	raw      []byte
	codec    Codec

	expiresAt time.Time
}

// ValueOf tags v with the type name of T.
func ValueOf[T any](v T) Value {
	return Value{
		typeName: TypeName(reflect.TypeFor[T]()),
		obj:      v,
		local:    true,
	}
}

// TypeName returns the declared type name of the value.
func (v Value) TypeName() string {
	return v.typeName
}

// WithExpiry returns v tagged with the absolute expiry of the entry it was
// read from. Backends set it on Get when they know the expiry.
func (v Value) WithExpiry(t time.Time) Value {
	v.expiresAt = t
	return v
}

// ExpiresAt returns the expiry recorded by WithExpiry. ok is false when the
// backend did not report one.
func (v Value) ExpiresAt() (t time.Time, ok bool) {
	return v.expiresAt, !v.expiresAt.IsZero()
}

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool {
	return v.typeName == ""
}

// As decodes v as T. It fails with ErrTypeMismatch when v was stored as a
// different type.
func As[T any](v Value) (T, error) {
	var zero T
	want := TypeName(reflect.TypeFor[T]())
	if v.typeName != want {
		return zero, fmt.Errorf("%w: stored %s, requested %s", ErrTypeMismatch, v.typeName, want)
	}

	if v.local {
		if v.obj == nil {
			return zero, nil
		}
		out, ok := v.obj.(T)
		if !ok {
			return zero, fmt.Errorf("%w: stored %T, requested %s", ErrTypeMismatch, v.obj, want)
		}
		return out, nil
	}

	if v.codec == nil {
		return zero, fmt.Errorf("storage: value of type %s has no codec", want)
	}
	var out T
	if err := v.codec.Unmarshal(v.raw, &out); err != nil {
		return zero, fmt.Errorf("storage: decode %s with %s: %w", want, v.codec.Name(), err)
	}
	return out, nil
}

// TypeName returns a stable, package-qualified name for t.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
