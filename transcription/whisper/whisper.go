// Package whisper implements transcription.Backend for a faster-whisper
// HTTP sidecar exposing POST /transcribe and GET /health.
package whisper

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/httpclient/rest"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/transcription"
)

const (
	// ProviderName is the registered name for the Whisper backend.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 10 * time.Minute
)

// Config holds configuration for the Whisper sidecar.
type Config struct {
	URL         string                    `yaml:"url" mapstructure:"url"`
	Model       string                    `yaml:"model" mapstructure:"model"`
	Language    string                    `yaml:"language" mapstructure:"language"`
	Device      string                    `yaml:"device" mapstructure:"device"`
	ComputeType string                    `yaml:"compute_type" mapstructure:"compute_type"`
	Timeout     time.Duration             `yaml:"timeout" mapstructure:"timeout"`
	Resilience  provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	// APIKey is sent in APIKeyHeader (default X-API-Key) when set.
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	APIKeyHeader string `yaml:"api_key_header" mapstructure:"api_key_header"`
}

// Backend sends audio to the sidecar as multipart form data.
type Backend struct {
	cfg    Config
	client *rest.Client
}

var _ transcription.Backend = (*Backend)(nil)

// New creates a Whisper backend.
func New(cfg Config) (*Backend, error) {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	client, err := rest.New(httpclient.Config{
		Name:       ProviderName,
		BaseURL:    cfg.URL,
		Timeout:    cfg.Timeout,
		Auth:       httpclient.APIKeyAuth(cfg.APIKey, cfg.APIKeyHeader),
		Resilience: cfg.Resilience,
	})
	if err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that creates Whisper backends from a
// generic config map.
func Factory() provider.Factory[transcription.Backend] {
	return func(m map[string]any) (transcription.Backend, error) {
		var cfg Config
		if err := provider.DecodeConfig(m, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	}
}

// Name returns the backend name.
func (b *Backend) Name() string { return ProviderName }

// IsAvailable checks that the sidecar answers /health with 200.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	if !b.client.IsAvailable(ctx) {
		return false
	}
	resp, err := b.client.HTTP().Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.StatusCode == http.StatusOK
}

// Transcribe uploads the audio file. The sidecar always answers with JSON
// segments regardless of the requested format.
func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	model := b.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := b.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	fields := map[string]string{
		"model":       model,
		"temperature": strconv.FormatFloat(req.Temperature, 'f', -1, 64),
	}
	if lang != "" {
		fields["language"] = lang
	}
	if req.Prompt != "" {
		fields["initial_prompt"] = req.Prompt
	}
	if b.cfg.Device != "" {
		fields["device"] = b.cfg.Device
	}
	if b.cfg.ComputeType != "" {
		fields["compute_type"] = b.cfg.ComputeType
	}

	resp, err := rest.Post[whisperResponse](ctx, b.client, "/transcribe", &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName: "audio",
			FileName:  filepath.Base(req.AudioPath),
			Path:      req.AudioPath,
		}},
	})
	if err != nil {
		return nil, err
	}
	return toResponse(&resp.Data), nil
}

// Close releases idle connections.
func (b *Backend) Close(ctx context.Context) error { return b.client.Close(ctx) }

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

type whisperSegment struct {
	Text       string   `json:"text"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

func toResponse(resp *whisperResponse) *transcription.Response {
	segments := make([]transcription.ResponseSegment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.ResponseSegment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			AvgLogprob: seg.AvgLogprob,
		}
	}

	return &transcription.Response{
		Text:            resp.Text,
		Segments:        segments,
		DurationSeconds: resp.Duration,
		Language:        resp.Language,
	}
}
