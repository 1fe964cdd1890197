// Package transcription turns audio files into time-aligned transcripts.
//
// The Orchestrator probes a file, asks the Policy whether it must be split,
// and transcribes either the whole file or each chunk in order through an
// injected Backend. Chunk transcription is a fold over the ordered chunks:
// each step carries the trailing text of the last successful chunk forward
// as the next prompt, so chunks are never transcribed concurrently. Failed
// chunks are recorded and skipped; Merge and MergeChunks rebuild one global
// timeline from whatever succeeded.
//
// # Backends
//
//   - transcription/openai: OpenAI-compatible /audio/transcriptions
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/transcriptiontest: scripted fake for tests
//
// # Usage
//
//	reg := transcription.NewRegistry()
//	reg.RegisterFactory(openai.ProviderName, openai.Factory())
//	backend, _ := reg.Create("openai", map[string]any{"api_key": key})
//
//	orch := transcription.NewOrchestrator(backend, prober, transcoder, transcription.Config{}, nil)
//	result, err := orch.Transcribe(ctx, "/evidence/interview.mp3", transcription.Options{Language: "en"})
package transcription
