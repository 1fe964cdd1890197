// Package openai implements transcription.Backend for the OpenAI-compatible
// /audio/transcriptions endpoint.
package openai

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
	// ProviderName is the registered name for this backend.
	ProviderName = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 10 * time.Minute
	transcribePath = "/audio/transcriptions"
)

// Config holds configuration for the OpenAI transcription backend.
type Config struct {
	BaseURL    string                    `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string                    `yaml:"api_key" mapstructure:"api_key"`
	Model      string                    `yaml:"model" mapstructure:"model"`
	Timeout    time.Duration             `yaml:"timeout" mapstructure:"timeout"`
	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Backend calls /audio/transcriptions with a multipart upload.
type Backend struct {
	cfg    Config
	client *rest.Client
}

var _ transcription.Backend = (*Backend)(nil)

// New creates an OpenAI transcription backend.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()
	hc := httpclient.Config{
		Name:       ProviderName,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Resilience: cfg.Resilience,
	}
	if cfg.APIKey != "" {
		hc.Auth = httpclient.BearerAuth(cfg.APIKey)
	}
	client, err := rest.New(hc)
	if err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory building backends from a config map.
func Factory() provider.Factory[transcription.Backend] {
	return func(m map[string]any) (transcription.Backend, error) {
		var cfg Config
		if err := provider.DecodeConfig(m, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	}
}

func (b *Backend) Name() string { return ProviderName }

// IsAvailable reports false while the circuit breaker is open.
func (b *Backend) IsAvailable(ctx context.Context) bool { return b.client.IsAvailable(ctx) }

// Transcribe uploads req.AudioPath. Structured formats are decoded; text,
// srt and vtt bodies are returned verbatim in Response.Text.
func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	format := req.ResponseFormat
	if format == "" {
		format = transcription.FormatVerboseJSON
	}
	body := b.form(req, format)

	if !format.Structured() {
		resp, err := b.client.HTTP().Do(ctx, httpclient.Request{
			Method: http.MethodPost,
			Path:   transcribePath,
			Body:   body,
		})
		if err != nil {
			return nil, err
		}
		return &transcription.Response{Text: string(resp.Body)}, nil
	}

	resp, err := rest.Post[apiResponse](ctx, b.client, transcribePath, body)
	if err != nil {
		return nil, err
	}
	return resp.Data.toResponse(), nil
}

func (b *Backend) form(req transcription.Request, format transcription.ResponseFormat) *httpclient.MultipartBody {
	model := b.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	fields := map[string]string{
		"model":           model,
		"response_format": string(format),
		"temperature":     strconv.FormatFloat(req.Temperature, 'f', -1, 64),
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	if req.Prompt != "" {
		fields["prompt"] = req.Prompt
	}
	body := &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName:   "file",
			FileName:    filepath.Base(req.AudioPath),
			ContentType: contentType(req.AudioPath),
			Path:        req.AudioPath,
		}},
	}
	if format == transcription.FormatVerboseJSON && len(req.TimestampGranularities) > 0 {
		body.Repeated = map[string][]string{"timestamp_granularities[]": req.TimestampGranularities}
	}
	return body
}

// Close releases idle connections.
func (b *Backend) Close(ctx context.Context) error { return b.client.Close(ctx) }

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	}
	return "application/octet-stream"
}

type apiResponse struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Segments []apiSegment `json:"segments"`
}

type apiSegment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

func (r apiResponse) toResponse() *transcription.Response {
	out := &transcription.Response{
		Text:            r.Text,
		Language:        r.Language,
		DurationSeconds: r.Duration,
	}
	for _, s := range r.Segments {
		out.Segments = append(out.Segments, transcription.ResponseSegment{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			AvgLogprob: s.AvgLogprob,
		})
	}
	return out
}
