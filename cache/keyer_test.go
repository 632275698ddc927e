package cache

import (
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/flightcache/storage"
)

func TestKeyer_DeterministicForMaps(t *testing.T) {
	keyer := NewDefaultKeyer()

	// Same content, different insertion order
	inputs := []map[string]any{
		{"b": 2, "a": 1, "c": 3},
		{"a": 1, "c": 3, "b": 2},
		{"c": 3, "b": 2, "a": 1},
	}

	var first string
	for i, in := range inputs {
		key, err := keyer.Key("users", in)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if i == 0 {
			first = key
			continue
		}
		if key != first {
			t.Errorf("Keys should be equal for same content:\n  key0=%s\n  key%d=%s", first, i, key)
		}
	}
}

func TestKeyer_NestedMaps(t *testing.T) {
	keyer := NewDefaultKeyer()

	nested1 := map[string]any{
		"outer": map[string]any{"z": 26, "a": 1, "m": 13},
		"other": "value",
	}
	nested2 := map[string]any{
		"other": "value",
		"outer": map[string]any{"a": 1, "m": 13, "z": 26},
	}

	key1, _ := keyer.Key("users", nested1)
	key2, _ := keyer.Key("users", nested2)
	if key1 != key2 {
		t.Errorf("Keys should be equal for nested maps with same content:\n  key1=%s\n  key2=%s", key1, key2)
	}
}

func TestKeyer_Distinguishes(t *testing.T) {
	keyer := NewDefaultKeyer()

	tests := []struct {
		name     string
		nsA, nsB string
		inA, inB any
	}{
		{name: "array order", nsA: "q", nsB: "q", inA: map[string]any{"items": []any{1, 2, 3}}, inB: map[string]any{"items": []any{3, 2, 1}}},
		{name: "namespace", nsA: "users", nsB: "orders", inA: map[string]any{"id": 42}, inB: map[string]any{"id": 42}},
		{name: "nil vs empty map", nsA: "q", nsB: "q", inA: nil, inB: map[string]any{}},
		{name: "value", nsA: "q", nsB: "q", inA: 42, inB: 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := keyer.Key(tt.nsA, tt.inA)
			if err != nil {
				t.Fatalf("Key() error = %v", err)
			}
			b, err := keyer.Key(tt.nsB, tt.inB)
			if err != nil {
				t.Fatalf("Key() error = %v", err)
			}
			if a == b {
				t.Errorf("Keys should differ: %s", a)
			}
		})
	}
}

func TestKeyer_KeyFormat(t *testing.T) {
	keyer := NewDefaultKeyer()

	key, err := keyer.Key("users", map[string]any{"id": 42})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	prefix := "users:"
	if !strings.HasPrefix(key, prefix) {
		t.Fatalf("Key should have prefix %q, got %q", prefix, key)
	}

	hash := strings.TrimPrefix(key, prefix)
	if len(hash) != 64 {
		t.Errorf("Hash should be 64 characters, got %d: %q", len(hash), hash)
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("Hash should be lowercase hex, got character %q in %q", string(c), hash)
			break
		}
	}

	bare, err := keyer.Key("", map[string]any{"id": 42})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if bare != hash {
		t.Errorf("Key without namespace = %q, want %q", bare, hash)
	}
}

func TestKeyer_InvalidNamespace(t *testing.T) {
	keyer := NewDefaultKeyer()

	tests := map[string]string{
		"newline":  "users\nadmin",
		"too long": strings.Repeat("n", storage.MaxKeyLength),
	}
	for name, ns := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := keyer.Key(ns, 1); !errors.Is(err, storage.ErrInvalidArgument) {
				t.Errorf("Key() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestKeyer_Unencodable(t *testing.T) {
	keyer := NewDefaultKeyer()
	if _, err := keyer.Key("q", map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("Key() should fail for input that cannot be encoded")
	}
}
