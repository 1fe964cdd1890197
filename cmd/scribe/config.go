package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/diarization"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/llm"
	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/validation"
)

const serviceName = "scribe"

// backendAuto selects the first available backend in Config.Fallback order.
const backendAuto = "auto"

// Config is the scribe application configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Backend names the speech-to-text backend, or "auto".
	Backend  string                    `yaml:"backend" mapstructure:"backend"`
	Fallback []string                  `yaml:"fallback" mapstructure:"fallback"`
	Backends map[string]map[string]any `yaml:"backends" mapstructure:"backends"`
	// Resilience wraps whichever backend is selected.
	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`

	Transcription TranscriptionConfig  `yaml:"transcription" mapstructure:"transcription"`
	Diarization   DiarizationConfig    `yaml:"diarization" mapstructure:"diarization"`
	Media         media.Config         `yaml:"media" mapstructure:"media"`
	Ingest        ingest.Config        `yaml:"ingest" mapstructure:"ingest"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Sidecar       SidecarConfig        `yaml:"sidecar" mapstructure:"sidecar"`
	Events        events.Config        `yaml:"events" mapstructure:"events"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// TranscriptionConfig holds orchestrator tuning and per-file defaults.
type TranscriptionConfig struct {
	transcription.Config `yaml:",inline" mapstructure:",squash"`

	Model       string  `yaml:"model" mapstructure:"model"`
	Language    string  `yaml:"language" mapstructure:"language"`
	Prompt      string  `yaml:"prompt" mapstructure:"prompt"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=1"`
	Format      string  `yaml:"format" mapstructure:"format"`
}

// DiarizationConfig selects and configures the speaker post-processor.
type DiarizationConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Mode is "llm" (reasoning pass over the transcript) or "pyannote"
	// (audio turns from a sidecar service).
	Mode     string                `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=llm pyannote"`
	Speakers int                   `yaml:"speakers" mapstructure:"speakers" validate:"gte=0"`
	LLM      llm.Config            `yaml:"llm" mapstructure:"llm"`
	Pass     diarization.LLMConfig `yaml:"pass" mapstructure:"pass"`
	Pyannote map[string]any        `yaml:"pyannote" mapstructure:"pyannote"`
}

// SidecarConfig places transcript documents in storage.
type SidecarConfig struct {
	// Prefix is joined with the source path. Empty with local storage
	// rooted at "/" writes the sidecar next to the media file.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

func (c *DiarizationConfig) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "llm"
	}
	if c.LLM.Dialect == "" {
		c.LLM.Dialect = "openai"
	}
	if c.LLM.BaseURL == "" {
		switch c.LLM.Dialect {
		case "ollama":
			c.LLM.BaseURL = "http://localhost:11434"
		case "openai":
			c.LLM.BaseURL = "https://api.openai.com/v1"
		}
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Backend == "" {
		c.Backend = "openai"
	}
	if len(c.Fallback) == 0 {
		c.Fallback = []string{"openai", "whisper"}
	}
	c.Diarization.applyDefaults()
	if c.Transcription.Format == "" {
		c.Transcription.Format = string(transcription.FormatVerboseJSON)
	}
	c.Transcription.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Ingest.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Events.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if !transcription.ResponseFormat(c.Transcription.Format).Valid() {
		return fmt.Errorf("transcription.format: unknown response format %q", c.Transcription.Format)
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"backend":                  "backend",
	"transcription.language":   "language",
	"transcription.model":      "model",
	"transcription.format":     "format",
	"diarization.enabled":      "diarize",
	"diarization.mode":         "diarizer",
	"diarization.speakers":     "speakers",
	"ingest.concurrency":       "concurrency",
	"ingest.keep_intermediate": "keep-intermediate",
	"ingest.standardize":       "standardize",
	"ingest.skip_existing":     "skip-existing",
}

// envAliases binds conventional credential variables.
var envAliases = map[string]string{
	"backends.openai.api_key": "OPENAI_API_KEY",
	"diarization.llm.api_key": "OPENAI_API_KEY",
	"storage.access_key":      "AWS_ACCESS_KEY_ID",
	"storage.secret_key":      "AWS_SECRET_ACCESS_KEY",
}

// newFlagSet declares the command-line flags.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.String("config", "", "path to config.yml")
	fs.String("env-file", "", "path to a .env file")
	fs.String("backend", "", "speech-to-text backend (openai, whisper, auto)")
	fs.String("language", "", "ISO-639-1 language hint")
	fs.String("model", "", "backend model name")
	fs.String("format", "", "response format (text, json, verbose_json, srt, vtt)")
	fs.Bool("diarize", false, "label speakers")
	fs.String("diarizer", "", "speaker labeling mode (llm, pyannote)")
	fs.Int("speakers", 0, "expected number of speakers (0 = unknown)")
	fs.Int("concurrency", 0, "files processed in parallel")
	fs.Bool("keep-intermediate", false, "keep extracted and standardized audio")
	fs.Bool("standardize", false, "apply the speech preset before transcribing")
	fs.Bool("skip-existing", false, "skip files that already have a transcript")
	fs.Bool("version", false, "print version and exit")
	return fs
}

// loadConfig loads config.yml, .env and environment variables, with flags
// the user passed on fs taking precedence. fs must already be parsed.
func loadConfig(fs *pflag.FlagSet, opts ...config.LoaderOption) (*Config, error) {
	path, _ := fs.GetString("config")
	envFile, _ := fs.GetString("env-file")

	loaderOpts := append([]config.LoaderOption{
		config.WithConfigFile(path),
		config.WithEnvFile(envFile),
		config.WithEnvAliases(envAliases),
		config.WithFlags(fs, flagKeys),
	}, opts...)

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, loaderOpts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
