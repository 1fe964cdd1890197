// Package pyannote implements diarization.TurnBackend for a pyannote HTTP
// sidecar exposing POST /diarize and GET /health.
package pyannote

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/scribe/diarization"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/httpclient/rest"
	"github.com/kbukum/scribe/provider"
)

const (
	// ProviderName is the registered name for the Pyannote backend.
	ProviderName = "pyannote"

	defaultPyannoteURL     = "http://localhost:8388"
	defaultPyannoteTimeout = 300 * time.Second
)

// Config holds configuration for the Pyannote sidecar.
type Config struct {
	BaseURL      string                    `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration             `yaml:"timeout" mapstructure:"timeout"`
	APIKey       string                    `yaml:"api_key" mapstructure:"api_key"`
	APIKeyHeader string                    `yaml:"api_key_header" mapstructure:"api_key_header"`
	Resilience   provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// Backend calls the Pyannote sidecar.
type Backend struct {
	cfg    Config
	client *rest.Client
}

var _ diarization.TurnBackend = (*Backend)(nil)

// New creates a Pyannote backend.
func New(cfg Config) (*Backend, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPyannoteURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultPyannoteTimeout
	}
	client, err := rest.New(httpclient.Config{
		Name:       ProviderName,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Auth:       httpclient.APIKeyAuth(cfg.APIKey, cfg.APIKeyHeader),
		Resilience: cfg.Resilience,
	})
	if err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that creates Pyannote backends from a
// generic config map.
func Factory() provider.Factory[diarization.TurnBackend] {
	return func(m map[string]any) (diarization.TurnBackend, error) {
		var cfg Config
		if err := provider.DecodeConfig(m, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	}
}

// Name returns the backend name.
func (b *Backend) Name() string { return ProviderName }

// IsAvailable checks if the sidecar answers /health.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	if !b.client.IsAvailable(ctx) {
		return false
	}
	resp, err := b.client.HTTP().Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.StatusCode == http.StatusOK
}

// Diarize uploads the audio and returns speaker turns.
func (b *Backend) Diarize(ctx context.Context, req diarization.TurnRequest) (*diarization.TurnResponse, error) {
	fields := map[string]string{}
	if req.NumSpeakers > 0 {
		fields["num_speakers"] = strconv.Itoa(req.NumSpeakers)
	}
	if req.MinSpeakers > 0 {
		fields["min_speakers"] = strconv.Itoa(req.MinSpeakers)
	}
	if req.MaxSpeakers > 0 {
		fields["max_speakers"] = strconv.Itoa(req.MaxSpeakers)
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}

	resp, err := rest.Post[pyannoteResponse](ctx, b.client, "/diarize", &httpclient.MultipartBody{
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
	if resp.Data.Error != "" {
		return nil, apperrors.ExternalServiceError(ProviderName, nil).
			WithDetail("reason", resp.Data.Error)
	}
	return toTurnResponse(&resp.Data), nil
}

// Close releases idle connections.
func (b *Backend) Close(ctx context.Context) error { return b.client.Close(ctx) }

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text,omitempty"`
}

func toTurnResponse(resp *pyannoteResponse) *diarization.TurnResponse {
	turns := make([]diarization.Turn, len(resp.Segments))
	for i, seg := range resp.Segments {
		turns[i] = diarization.Turn{
			Speaker: seg.SpeakerID,
			Start:   seg.StartTime,
			End:     seg.EndTime,
			Text:    seg.Text,
		}
	}
	return &diarization.TurnResponse{
		Turns:       turns,
		NumSpeakers: resp.NumSpeakers,
	}
}
