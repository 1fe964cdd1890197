package provider_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/resilience"
)

type stub struct {
	name      string
	available bool
}

func (s *stub) Name() string                     { return s.name }
func (s *stub) IsAvailable(context.Context) bool { return s.available }

func TestRegistryCreate(t *testing.T) {
	reg := provider.NewRegistry[*stub]()
	reg.RegisterFactory("whisper", func(cfg map[string]any) (*stub, error) {
		return &stub{name: cfg["name"].(string), available: true}, nil
	})

	p, err := reg.Create("whisper", map[string]any{"name": "local-whisper"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "local-whisper" {
		t.Errorf("expected local-whisper, got %s", p.Name())
	}

	_, err = reg.Create("deepgram", nil)
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for unregistered factory, got %v", err)
	}
	if got := reg.List(); len(got) != 1 || got[0] != "whisper" {
		t.Errorf("unexpected list %v", got)
	}
}

func TestPrioritySelector(t *testing.T) {
	providers := map[string]*stub{
		"openai":  {name: "openai", available: false},
		"whisper": {name: "whisper", available: true},
	}
	sel := &provider.PrioritySelector[*stub]{Priority: []string{"openai", "whisper"}}
	p, err := sel.Select(context.Background(), providers)
	if err != nil || p.Name() != "whisper" {
		t.Fatalf("expected whisper fallback, got %v, %v", p, err)
	}

	providers["whisper"].available = false
	if _, err := sel.Select(context.Background(), providers); !apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(tag string) provider.Middleware[string, string] {
		return func(inner provider.RequestResponse[string, string]) provider.RequestResponse[string, string] {
			return provider.Func(inner.Name(), func(ctx context.Context, in string) (string, error) {
				order = append(order, tag)
				return inner.Execute(ctx, in)
			})
		}
	}
	base := provider.Func("base", func(_ context.Context, in string) (string, error) {
		order = append(order, "base")
		return in, nil
	})

	wrapped := provider.Chain(mw("a"), mw("b"))(base)
	if _, err := wrapped.Execute(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "a,b,base" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestWithLogging_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	failing := provider.Func("stt", func(context.Context, string) (string, error) {
		return "", errors.New("upstream 503")
	})

	wrapped := provider.WithLogging[string, string](log)(failing)
	if _, err := wrapped.Execute(context.Background(), "x"); err == nil {
		t.Fatal("expected error to pass through")
	}
	out := buf.String()
	if !strings.Contains(out, "provider call failed") || !strings.Contains(out, "upstream 503") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestWithTracingAndMetrics_PassThrough(t *testing.T) {
	p := provider.Func("llm", func(_ context.Context, in string) (string, error) { return in + "!", nil })
	wrapped := provider.Chain(
		provider.WithTracing[string, string]("diarization"),
		provider.WithMetrics[string, string](nil),
	)(p)
	out, err := wrapped.Execute(context.Background(), "hi")
	if err != nil || out != "hi!" {
		t.Fatalf("got %q, %v", out, err)
	}
	if wrapped.Name() != "llm" || !wrapped.IsAvailable(context.Background()) {
		t.Error("middleware must delegate Name and IsAvailable")
	}
}

func TestWithResilience_RetryRecoversTransient(t *testing.T) {
	var calls atomic.Int32
	p := provider.Func("stt", func(context.Context, int) (int, error) {
		if calls.Add(1) < 3 {
			return 0, apperrors.ServiceUnavailable("stt")
		}
		return 42, nil
	})
	wrapped := provider.WithResilience(p, provider.ResilienceConfig{
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	got, err := wrapped.Execute(context.Background(), 1)
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d, %v", got, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestWithResilience_CircuitOpenIsServiceUnavailable(t *testing.T) {
	p := provider.Func("stt", func(context.Context, int) (int, error) {
		return 0, errors.New("connection refused")
	})
	wrapped := provider.WithResilience(p, provider.ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour},
	})
	_, _ = wrapped.Execute(context.Background(), 1)

	_, err := wrapped.Execute(context.Background(), 1)
	if !apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Error("expected ErrCircuitOpen in the cause chain")
	}
}

func TestWithResilience_EmptyConfigPassthrough(t *testing.T) {
	p := provider.Func("x", func(context.Context, int) (int, error) { return 1, nil })
	if provider.WithResilience(p, provider.ResilienceConfig{}) != p {
		t.Error("empty config should return the provider unchanged")
	}
}
