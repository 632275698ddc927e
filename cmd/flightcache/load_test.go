package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/flightcache/cache"
	"github.com/jonwraymond/flightcache/storage"
)

func TestRunLoad_Coalesces(t *testing.T) {
	c, err := cache.New(storage.NewMemory(storage.MemoryConfig{}))
	if err != nil {
		t.Fatal(err)
	}

	report, err := runLoad(context.Background(), c, loadConfig{
		Callers: 200,
		Keys:    4,
		Latency: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("runLoad() error = %v", err)
	}
	if report.Calls != 200 || report.Failures != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.Computations < 4 || report.Computations >= report.Calls {
		t.Errorf("computations = %d, want at least one per key and far fewer than calls", report.Computations)
	}

	for i := 0; i < 4; i++ {
		if _, ok, _ := c.Store().Get(context.Background(), "load:"+string(rune('0'+i))); !ok {
			t.Errorf("load:%d not written back", i)
		}
	}
}

func TestRunLoad_InvalidConfig(t *testing.T) {
	c, _ := cache.New(storage.NewMemory(storage.MemoryConfig{}))
	for _, cfg := range []loadConfig{{Callers: 0, Keys: 1}, {Callers: 1, Keys: 0}} {
		if _, err := runLoad(context.Background(), c, cfg); err == nil {
			t.Errorf("runLoad(%+v) error = nil", cfg)
		}
	}
}

func TestLoadReport_Write(t *testing.T) {
	var buf bytes.Buffer
	loadReport{Calls: 100, Computations: 4, Elapsed: time.Second}.write(&buf)
	out := buf.String()
	for _, want := range []string{"calls:        100", "computations: 4", "calls/computation: 25.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
