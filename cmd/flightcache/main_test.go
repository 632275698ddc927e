package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestApp_Load(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out

	err := app.Run([]string{
		"flightcache", "--storage", "lru", "--log-level", "error",
		"load", "--callers", "50", "--keys", "5", "--latency", "20ms",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "calls:        50") {
		t.Errorf("output = %q", out.String())
	}
}

func TestApp_ServeRequiresOrigin(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	t.Setenv("FLIGHTCACHE_ORIGIN", "")
	if err := app.Run([]string{"flightcache", "serve"}); err == nil {
		t.Error("Run(serve) without --origin error = nil")
	}
}

func TestApp_UnknownStorage(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"flightcache", "--storage", "floppy", "load", "--callers", "1", "--keys", "1"})
	if err == nil || !strings.Contains(err.Error(), "unknown storage backend") {
		t.Errorf("Run() error = %v", err)
	}
}
