package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthzHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthzHandler(Fixed(true, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Fatalf("healthy = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("probe responses must not be cached")
	}
}

func TestReadyzHandler_Failing(t *testing.T) {
	var g ShutdownGate
	g.Close("")
	rec := httptest.NewRecorder()
	ReadyzHandler(All(g.Probe())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "draining\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyzHandler_NilProbe(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyzHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready\n" {
		t.Fatalf("nil probe = %d %q", rec.Code, rec.Body.String())
	}
}
