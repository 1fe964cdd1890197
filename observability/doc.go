// Package observability wires OpenTelemetry tracing and metrics.
//
// When no OTLP endpoint is configured the otel global no-op providers stay in
// place, so spans and instruments created here cost nothing. Pipeline stages
// record their work through PipelineMetrics:
//
//	m, _ := observability.NewPipelineMetrics(observability.Meter("scribe"))
//	m.RecordChunk(ctx, "openai", observability.StatusOK)
//	m.RecordStage(ctx, "probe", time.Since(start), err)
package observability
