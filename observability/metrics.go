package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

// PipelineMetrics holds the instruments recorded by the transcription pipeline.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	chunks        metric.Int64Counter
	files         metric.Int64Counter
	stageDuration metric.Float64Histogram
	calls         metric.Int64Counter
	callDuration  metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	chunks, err := meter.Int64Counter("scribe.chunks.total",
		metric.WithDescription("Chunks submitted to the speech-to-text backend"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.chunks.total: %w", err)
	}
	files, err := meter.Int64Counter("scribe.files.total",
		metric.WithDescription("Media files processed"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.files.total: %w", err)
	}
	stage, err := meter.Float64Histogram("scribe.stage.duration",
		metric.WithDescription("Duration of pipeline stages"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.stage.duration: %w", err)
	}
	calls, err := meter.Int64Counter("scribe.provider.calls",
		metric.WithDescription("Calls to external providers"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.provider.calls: %w", err)
	}
	callDuration, err := meter.Float64Histogram("scribe.provider.duration",
		metric.WithDescription("Latency of external provider calls"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.provider.duration: %w", err)
	}
	return &PipelineMetrics{
		chunks:        chunks,
		files:         files,
		stageDuration: stage,
		calls:         calls,
		callDuration:  callDuration,
	}, nil
}

// RecordChunk counts one chunk outcome.
func (m *PipelineMetrics) RecordChunk(ctx context.Context, backend, status string) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
}

// RecordFile counts one file outcome.
func (m *PipelineMetrics) RecordFile(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.files.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordStage records how long a pipeline stage took.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", statusOf(err)),
	))
}

// RecordCall records one external provider call.
func (m *PipelineMetrics) RecordCall(ctx context.Context, provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", statusOf(err)),
	)
	m.calls.Add(ctx, 1, attrs)
	m.callDuration.Record(ctx, d.Seconds(), attrs)
}

func statusOf(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusOK
}
