package transcription

import (
	"context"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/provider"
)

// Request is one speech-to-text call.
type Request struct {
	AudioPath              string         `json:"audio_path"`
	Model                  string         `json:"model,omitempty"`
	Language               string         `json:"language,omitempty"`
	Prompt                 string         `json:"prompt,omitempty"`
	Temperature            float64        `json:"temperature"`
	ResponseFormat         ResponseFormat `json:"response_format"`
	TimestampGranularities []string       `json:"timestamp_granularities,omitempty"`
}

// Response is a backend's answer before normalization. For unstructured
// formats only Text is set.
type Response struct {
	Text            string            `json:"text"`
	Language        string            `json:"language,omitempty"`
	DurationSeconds float64           `json:"duration,omitempty"`
	Segments        []ResponseSegment `json:"segments,omitempty"`
}

// ResponseSegment is a segment as the backend reported it. Confidence and
// AvgLogprob are optional.
type ResponseSegment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	AvgLogprob *float64 `json:"avg_logprob,omitempty"`
}

// Backend is a speech-to-text service.
type Backend interface {
	provider.Provider

	// Transcribe submits one audio file.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}

// NewRegistry creates a registry of backend factories.
func NewRegistry() *provider.Registry[Backend] {
	return provider.NewRegistry[Backend]()
}

// AsRequestResponse exposes b to the provider middlewares.
func AsRequestResponse(b Backend) provider.RequestResponse[Request, *Response] {
	return provider.Func(b.Name(), b.Transcribe)
}

// FromRequestResponse turns a (possibly wrapped) RequestResponse back into a
// Backend. Availability is delegated to avail.
func FromRequestResponse(rr provider.RequestResponse[Request, *Response], avail provider.Provider) Backend {
	return &rrBackend{rr: rr, avail: avail}
}

type rrBackend struct {
	rr    provider.RequestResponse[Request, *Response]
	avail provider.Provider
}

func (b *rrBackend) Name() string                         { return b.rr.Name() }
func (b *rrBackend) IsAvailable(ctx context.Context) bool { return b.avail.IsAvailable(ctx) }

func (b *rrBackend) Transcribe(ctx context.Context, req Request) (*Response, error) {
	return b.rr.Execute(ctx, req)
}

// Instrument wraps b with tracing, logging, metrics and resilience.
func Instrument(b Backend, log *logger.Logger, metrics *observability.PipelineMetrics, res provider.ResilienceConfig) Backend {
	rr := provider.WithResilience(AsRequestResponse(b), res)
	rr = provider.Chain(
		provider.WithTracing[Request, *Response]("transcription"),
		provider.WithLogging[Request, *Response](log),
		provider.WithMetrics[Request, *Response](metrics),
	)(rr)
	return FromRequestResponse(rr, b)
}
