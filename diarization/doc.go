// Package diarization attributes transcript segments to speakers.
//
// Post-processors take a finished transcription.Result and return a new one
// with Speaker set on zero or more segments. They never remove or reorder
// segments, never mutate their input and never fail: any error degrades to
// returning the input unchanged.
//
// # Post-processors
//
//   - LLMPostProcessor: asks a reasoning model to label timestamped lines,
//     then aligns the labels back onto segments in two passes (timestamp
//     window, then text prefix).
//   - TurnPostProcessor: asks an audio diarization backend (see
//     diarization/pyannote) for speaker turns and assigns each segment the
//     speaker whose turn overlaps it most.
//
// # Usage
//
//	llmBackend, _ := llm.New(llm.Config{Dialect: "ollama", Model: "llama3"})
//	pp := diarization.NewLLMPostProcessor(llmBackend, diarization.LLMConfig{})
//	labeled := pp.Process(ctx, result, diarization.Options{SpeakerCount: 2})
package diarization
