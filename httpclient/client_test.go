package httpclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/resilience"
)

func TestClient_Do_JSONBodyAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("v") != "1" {
			t.Errorf("query v = %q", r.URL.Query().Get("v"))
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "scribe/") {
			t.Errorf("User-Agent = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "hi" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("X-Request-Id", "abc")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(Config{Name: "llm", BaseURL: srv.URL + "/", Auth: BearerAuth("tok")})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(t.Context(), Request{
		Method: http.MethodPost,
		Path:   "/api/chat",
		Query:  map[string]string{"v": "1"},
		Body:   map[string]string{"prompt": "hi"},
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if !resp.IsSuccess() || resp.Headers["X-Request-Id"] != "abc" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_Do_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      apperrors.ErrorCode
		retryable bool
	}{
		{401, apperrors.ErrCodeUnauthorized, false},
		{404, apperrors.ErrCodeNotFound, false},
		{413, apperrors.ErrCodeInvalidInput, false},
		{429, apperrors.ErrCodeRateLimited, true},
		{502, apperrors.ErrCodeExternalService, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte("boom"))
		}))
		c, _ := New(Config{Name: "stt", BaseURL: srv.URL})
		resp, err := c.Do(t.Context(), Request{Method: http.MethodGet, Path: "/"})
		srv.Close()

		appErr, ok := apperrors.AsAppError(err)
		if !ok {
			t.Fatalf("status %d: expected AppError, got %v", tt.status, err)
		}
		if appErr.Code != tt.code || appErr.Retryable != tt.retryable {
			t.Errorf("status %d: code=%s retryable=%v", tt.status, appErr.Code, appErr.Retryable)
		}
		if StatusCode(err) != tt.status {
			t.Errorf("StatusCode() = %d, want %d", StatusCode(err), tt.status)
		}
		if resp == nil || string(resp.Body) != "boom" {
			t.Errorf("status %d: response body not returned with error", tt.status)
		}
	}
}

func TestClient_Do_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Resilience: provider.ResilienceConfig{
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	}})
	resp, err := c.Do(t.Context(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 3 {
		t.Errorf("body=%q calls=%d", resp.Body, calls.Load())
	}
}

func TestClient_Do_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Resilience: provider.ResilienceConfig{
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	}})
	if _, err := c.Do(t.Context(), Request{Method: http.MethodGet, Path: "/"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_ConnectionError(t *testing.T) {
	c, _ := New(Config{Name: "dead", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Do(t.Context(), Request{Method: http.MethodGet, Path: "/"})
	if !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("connection errors should be retryable")
	}
}

func TestClient_IsAvailable_CircuitOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := New(Config{Name: "stt", BaseURL: srv.URL, Resilience: provider.ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute},
	}})
	if !c.IsAvailable(t.Context()) {
		t.Fatal("expected available before failures")
	}
	_, _ = c.Do(t.Context(), Request{Method: http.MethodGet, Path: "/"})
	if c.IsAvailable(t.Context()) {
		t.Error("expected unavailable after circuit opened")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout || cfg.Name != "http" {
		t.Errorf("defaults = %+v", cfg)
	}
	res := DefaultResilience("openai")
	if res.Retry == nil || res.CircuitBreaker == nil || res.CircuitBreaker.Name != "openai" {
		t.Errorf("DefaultResilience = %+v", res)
	}
}
