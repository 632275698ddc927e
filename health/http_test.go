package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAggregator(results map[string]Result) *Aggregator {
	agg := NewAggregator()
	for name, r := range results {
		agg.Register(name, staticChecker(name, r))
	}
	return agg
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("liveness = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantCode int
		wantBody string
	}{
		{"healthy", Healthy("ok"), http.StatusOK, "OK"},
		{"degraded", Degraded("slow"), http.StatusOK, "DEGRADED"},
		{"unhealthy", Unhealthy("down", ErrCheckFailed), http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(map[string]Result{"storage": tt.result})
			rec := httptest.NewRecorder()
			ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("readiness = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := newTestAggregator(map[string]Result{
		"storage": Healthy("round trip ok").WithDetails(map[string]any{"backend": "redis"}),
		"breaker": Unhealthy("circuit open", ErrCheckFailed),
	})

	rec := httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" || len(resp.Checks) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Checks["breaker"].Error != ErrCheckFailed.Error() {
		t.Errorf("breaker error = %q", resp.Checks["breaker"].Error)
	}
	if resp.Checks["storage"].Details["backend"] != "redis" {
		t.Errorf("storage details = %v", resp.Checks["storage"].Details)
	}
}

func TestRegisterHandlers(t *testing.T) {
	agg := newTestAggregator(map[string]Result{"storage": Healthy("ok")})
	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/health", http.StatusOK},
		{"/health/storage", http.StatusOK},
		{"/health/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
		})
	}
}

func TestSingleCheckHandler_FixedName(t *testing.T) {
	agg := newTestAggregator(map[string]Result{"breaker": Unhealthy("open", ErrCheckFailed)})

	rec := httptest.NewRecorder()
	SingleCheckHandler(agg, "breaker")(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" || resp.Message != "open" {
		t.Errorf("resp = %+v", resp)
	}
}
