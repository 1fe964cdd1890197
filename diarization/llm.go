package diarization

import (
	"context"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/llm"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/transcription"
)

const defaultLLMTimeout = 3 * time.Minute

// LLMConfig configures the reasoning pass.
type LLMConfig struct {
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMPostProcessor labels speakers with a reasoning model.
type LLMPostProcessor struct {
	backend provider.RequestResponse[llm.CompletionRequest, llm.CompletionResponse]
	cfg     LLMConfig
	metrics *observability.PipelineMetrics
	log     *logger.Logger
}

var _ PostProcessor = (*LLMPostProcessor)(nil)

// NewLLMPostProcessor wraps any completion backend, including one already
// wrapped with provider middlewares.
func NewLLMPostProcessor(backend provider.RequestResponse[llm.CompletionRequest, llm.CompletionResponse], cfg LLMConfig) *LLMPostProcessor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	return &LLMPostProcessor{backend: backend, cfg: cfg, log: logger.Get("diarization")}
}

// WithMetrics records the stage duration on m.
func (p *LLMPostProcessor) WithMetrics(m *observability.PipelineMetrics) *LLMPostProcessor {
	p.metrics = m
	return p
}

func (p *LLMPostProcessor) Name() string { return "llm:" + p.backend.Name() }

// Process returns a copy of res with speakers assigned, or res itself when
// the backend fails or nothing can be aligned.
func (p *LLMPostProcessor) Process(ctx context.Context, res *transcription.Result, opts Options) *transcription.Result {
	if res == nil || len(res.Segments) == 0 {
		return res
	}
	ctx, span := observability.StartSpan(ctx, "diarization.llm")
	defer span.End()
	log := p.log.WithContext(ctx)
	started := time.Now()

	out, err := p.process(ctx, res, opts)
	p.metrics.RecordStage(ctx, "diarize", time.Since(started), err)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Warn("diarization skipped", logger.Fields(
			logger.FieldSource, res.SourceFile, logger.FieldError, err.Error(),
		))
		return res
	}
	return out
}

func (p *LLMPostProcessor) process(ctx context.Context, res *transcription.Result, opts Options) (*transcription.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req := llm.Prompt(systemPrompt, BuildPrompt(res, opts.SpeakerCount))
	req.Model = p.cfg.Model
	req.Temperature = p.cfg.Temperature
	req.MaxTokens = p.cfg.MaxTokens
	text, err := llm.Complete(cctx, p.backend, req)
	if err != nil {
		return nil, apperrors.DiarizationError("reasoning backend failed", err)
	}

	lines := ParseResponse(text)
	if len(lines) == 0 {
		return nil, apperrors.DiarizationError("no speaker lines in response", nil)
	}
	assigned := Align(res.Segments, lines)
	if len(assigned) == 0 {
		return nil, apperrors.DiarizationError("no lines matched a segment", nil)
	}

	p.log.WithContext(ctx).Info("speakers assigned", logger.Fields(
		logger.FieldSource, res.SourceFile,
		logger.FieldSegments, len(res.Segments),
		"assigned", len(assigned),
		"lines", len(lines),
	))
	return Apply(res, assigned), nil
}
