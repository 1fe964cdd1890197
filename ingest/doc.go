// Package ingest runs the end-to-end pipeline for one or more media files:
// probe, extract audio from video, optionally standardize, transcribe,
// optionally label speakers, persist a sidecar and publish a completion
// event.
//
//	wf := ingest.New(prober, transcoder, orch, store, ingest.Config{}, ingest.WithDiarizer(pp))
//	out, err := wf.Process(ctx, ingest.Request{Path: "/cases/17/interview.mp4"})
package ingest
