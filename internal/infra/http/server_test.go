//go:build !integration

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradematch/internal/config"
	"tradematch/internal/infra/api"
	"tradematch/internal/infra/api/apiv1"
	httpapi "tradematch/internal/infra/http"
	"tradematch/internal/usecase"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func newRouter(checks []httpapi.ReadinessCheck, origins ...string) http.Handler {
	auth := api.NewAuthManager("secret", "")
	v1 := apiv1.NewServer(usecase.NewMatchUseCase(nil, newLogger()), nil, apiv1.Options{
		Authenticate: auth.Authenticate(newLogger()),
	}, newLogger())
	return httpapi.NewRouter(config.HTTPConfig{RequestTimeout: time.Second, AllowedOrigins: origins}, v1, checks, newLogger())
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProbes(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		rec := serve(newRouter(nil), httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		if rec.Header().Get(api.HeaderRequestID) == "" {
			t.Error("expected a request id on every response")
		}
	})

	t.Run("ready when all checks pass", func(t *testing.T) {
		checks := []httpapi.ReadinessCheck{{Name: "postgres", Check: func(context.Context) error { return nil }}}
		if rec := serve(newRouter(checks), httptest.NewRequest(http.MethodGet, "/ready", nil)); rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})

	t.Run("not ready names the failed dependency only", func(t *testing.T) {
		checks := []httpapi.ReadinessCheck{
			{Name: "postgres", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp 10.0.0.1:6379: refused") }},
		}
		rec := serve(newRouter(checks), httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("want 503, got %d", rec.Code)
		}
		var body struct {
			Failed map[string]string `json:"failed"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if len(body.Failed) != 1 || body.Failed["redis"] == "" {
			t.Errorf("unexpected failed set %v", body.Failed)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		if rec := serve(newRouter(nil), httptest.NewRequest(http.MethodGet, "/metrics", nil)); rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})
}

func TestRouting(t *testing.T) {
	h := newRouter(nil)

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("api must be mounted behind auth, got %d", rec.Code)
	}
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("want 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("404 must be json, got %q", ct)
	}
}

func TestCORS(t *testing.T) {
	h := newRouter(nil, "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/matches", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(h, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = serve(h, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin must not be allowed, got %q", got)
	}
}
