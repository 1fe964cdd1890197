package diarization

import (
	"context"

	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/transcription"
)

// Options are per-transcript hints.
type Options struct {
	// SpeakerCount is the expected number of speakers; 0 lets the backend
	// decide.
	SpeakerCount int
	// AudioPath is the audio the transcript came from. Only audio-based
	// post-processors need it.
	AudioPath string
	Language  string
}

// PostProcessor labels segments with speakers. Process returns a new
// Result; on any failure it returns res itself.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, res *transcription.Result, opts Options) *transcription.Result
}

// Turn is one speaker turn reported by an audio diarization backend.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text,omitempty"`
}

// TurnRequest holds parameters for an audio diarization call.
type TurnRequest struct {
	// AudioPath is the path to the audio file to diarize.
	AudioPath string `json:"audio_path"`
	// NumSpeakers is the exact number of speakers (0 = auto-detect).
	NumSpeakers int `json:"num_speakers,omitempty"`
	// MinSpeakers is the minimum expected number of speakers.
	MinSpeakers int `json:"min_speakers,omitempty"`
	// MaxSpeakers is the maximum expected number of speakers.
	MaxSpeakers int `json:"max_speakers,omitempty"`
	// Language is the expected language of the audio (e.g. "en").
	Language string `json:"language,omitempty"`
}

// TurnResponse holds the result of an audio diarization call.
type TurnResponse struct {
	Turns       []Turn `json:"turns"`
	NumSpeakers int    `json:"num_speakers"`
}

// TurnBackend is an audio diarization service.
type TurnBackend interface {
	provider.Provider

	// Diarize sends audio for speaker diarization.
	Diarize(ctx context.Context, req TurnRequest) (*TurnResponse, error)
}

// NewRegistry creates a registry of turn backend factories.
func NewRegistry() *provider.Registry[TurnBackend] {
	return provider.NewRegistry[TurnBackend]()
}
