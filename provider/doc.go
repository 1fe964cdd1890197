// Package provider defines the small generic framework every external
// backend in this module plugs into: speech-to-text services, reasoning
// models, diarization sidecars and subprocess tools.
//
// A backend implements RequestResponse[I, O]. Cross-cutting behavior is added
// by wrapping it:
//
//	stt := provider.Chain(
//	    provider.WithTracing[Req, *Resp]("transcription"),
//	    provider.WithLogging[Req, *Resp](log),
//	    provider.WithMetrics[Req, *Resp](metrics),
//	)(provider.WithResilience(raw, cfg.Resilience))
//
// Registry maps backend names from configuration to factories, and
// PrioritySelector picks the first available backend from a preference list.
package provider
