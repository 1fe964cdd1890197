package main

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/diarization"
	"github.com/kbukum/scribe/diarization/pyannote"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/llm"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/sidecar"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/transcription/openai"
	"github.com/kbukum/scribe/transcription/whisper"

	_ "github.com/kbukum/scribe/llm/ollama"
	_ "github.com/kbukum/scribe/llm/openai"
	_ "github.com/kbukum/scribe/storage/local"
	_ "github.com/kbukum/scribe/storage/s3"
)

// app holds the assembled pipeline and everything that needs closing.
type app struct {
	workflow  *ingest.Workflow
	backend   transcription.Backend
	publisher events.Publisher
	closers   []func(context.Context) error
	log       *logger.Logger
}

type closer interface {
	Close(ctx context.Context) error
}

func backendRegistry() *provider.Registry[transcription.Backend] {
	r := transcription.NewRegistry()
	r.RegisterFactory(openai.ProviderName, openai.Factory())
	r.RegisterFactory(whisper.ProviderName, whisper.Factory())
	return r
}

func turnRegistry() *provider.Registry[diarization.TurnBackend] {
	r := diarization.NewRegistry()
	r.RegisterFactory(pyannote.ProviderName, pyannote.Factory())
	return r
}

// newApp wires the pipeline from cfg.
func newApp(ctx context.Context, cfg *Config) (*app, error) {
	a := &app{log: logger.Get(serviceName)}

	metrics, err := observability.NewPipelineMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	backend, err := a.selectBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.backend = transcription.Instrument(backend, logger.Get("transcription"), metrics, cfg.Resilience)

	prober, transcoder := media.NewTools(cfg.Media)
	orch := transcription.NewOrchestrator(a.backend, prober, transcoder, cfg.Transcription.Config, metrics)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	sidecars := sidecar.New(store, cfg.Sidecar.Prefix)

	a.publisher, err = events.New(cfg.Events)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.publisher.Close() })

	opts := []ingest.Option{
		ingest.WithPublisher(a.publisher),
		ingest.WithMetrics(metrics),
		ingest.WithBackendName(backend.Name()),
	}
	if cfg.Diarization.Enabled {
		pp, err := a.newDiarizer(cfg.Diarization, metrics)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithDiarizer(pp))
	}

	a.workflow = ingest.New(prober, transcoder, orch, sidecars, cfg.Ingest, opts...)
	return a, nil
}

// selectBackend builds the configured backend, or with "auto" the first
// available one in fallback order.
func (a *app) selectBackend(ctx context.Context, cfg *Config) (transcription.Backend, error) {
	reg := backendRegistry()
	names := []string{cfg.Backend}
	if cfg.Backend == backendAuto {
		names = cfg.Fallback
	}

	built := make(map[string]transcription.Backend, len(names))
	for _, name := range names {
		b, err := reg.Create(name, cfg.Backends[name])
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", name, err)
		}
		if c, ok := b.(closer); ok {
			a.closers = append(a.closers, c.Close)
		}
		built[name] = b
	}
	if cfg.Backend != backendAuto {
		return built[cfg.Backend], nil
	}

	sel := &provider.PrioritySelector[transcription.Backend]{Priority: cfg.Fallback}
	b, err := sel.Select(ctx, built)
	if err != nil {
		return nil, fmt.Errorf("no transcription backend available: %w", err)
	}
	a.log.Info("backend selected", logger.Fields(logger.FieldBackend, b.Name()))
	return b, nil
}

func (a *app) newDiarizer(cfg DiarizationConfig, metrics *observability.PipelineMetrics) (diarization.PostProcessor, error) {
	switch cfg.Mode {
	case "pyannote":
		tb, err := turnRegistry().Create(pyannote.ProviderName, cfg.Pyannote)
		if err != nil {
			return nil, fmt.Errorf("diarization: %w", err)
		}
		if c, ok := tb.(closer); ok {
			a.closers = append(a.closers, c.Close)
		}
		return diarization.NewTurnPostProcessor(tb, metrics), nil
	default:
		adapter, err := llm.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("diarization llm: %w", err)
		}
		a.closers = append(a.closers, adapter.Close)
		rr := provider.Chain(
			provider.WithTracing[llm.CompletionRequest, llm.CompletionResponse]("diarization"),
			provider.WithLogging[llm.CompletionRequest, llm.CompletionResponse](logger.Get("llm")),
			provider.WithMetrics[llm.CompletionRequest, llm.CompletionResponse](metrics),
		)(provider.RequestResponse[llm.CompletionRequest, llm.CompletionResponse](adapter))
		return diarization.NewLLMPostProcessor(rr, cfg.Pass).WithMetrics(metrics), nil
	}
}

// close releases backends and the event publisher in reverse order.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("close failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}
}
