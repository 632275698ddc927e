package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes payloads for byte-oriented backends.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Determinism: Unmarshal(Marshal(v)) must reproduce v's exported state.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec encodes with MessagePack. It is the default codec.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                       { return "msgpack" }
func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// JSONCodec encodes with encoding/json, for stores shared with non-Go readers.
type JSONCodec struct{}

func (JSONCodec) Name() string                       { return "json" }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// DefaultCodec returns the codec used when a backend is not given one.
func DefaultCodec() Codec {
	return MsgpackCodec{}
}

var errCodecMismatch = errors.New("storage: value was encoded with a different codec")

// envelope is the wire form of a Value.
type envelope struct {
	Type    string `msgpack:"t" json:"t"`
	Payload []byte `msgpack:"p" json:"p"`
}

// EncodeValue serializes v together with its type name.
func EncodeValue(c Codec, v Value) ([]byte, error) {
	if c == nil {
		c = DefaultCodec()
	}
	if v.IsZero() {
		return nil, fmt.Errorf("%w: value is empty", ErrInvalidArgument)
	}

	var payload []byte
	switch {
	case v.local:
		p, err := c.Marshal(v.obj)
		if err != nil {
			return nil, fmt.Errorf("storage: encode %s: %w", v.typeName, err)
		}
		payload = p
	case v.codec != nil && v.codec.Name() == c.Name():
		payload = v.raw
	default:
		return nil, errCodecMismatch
	}

	return c.Marshal(envelope{Type: v.typeName, Payload: payload})
}

// DecodeValue parses data produced by EncodeValue. The payload stays encoded
// until As is called with the requested type.
func DecodeValue(c Codec, data []byte) (Value, error) {
	if c == nil {
		c = DefaultCodec()
	}
	var env envelope
	if err := c.Unmarshal(data, &env); err != nil {
		return Value{}, fmt.Errorf("storage: decode envelope: %w", err)
	}
	if env.Type == "" {
		return Value{}, errors.New("storage: envelope has no type")
	}
	return Value{typeName: env.Type, raw: env.Payload, codec: c}, nil
}
