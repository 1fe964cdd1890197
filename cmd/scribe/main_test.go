package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/transcription"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := newFlagSet()
	require.NoError(t, fs.Parse(args))
	return loadConfig(fs)
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
name: scribe
environment: production
backend: whisper
backends:
  whisper:
    url: http://stt:9000
transcription:
  language: de
  chunk_timeout: 2m
  policy:
    chunk_seconds: 120
diarization:
  enabled: true
  speakers: 2
  llm:
    dialect: ollama
storage:
  provider: local
  base_path: /srv/evidence
sidecar:
  prefix: transcripts
`)
	cfg, err := parse(t, "--config", path)
	require.NoError(t, err)

	assert.Equal(t, "whisper", cfg.Backend)
	assert.Equal(t, "http://stt:9000", cfg.Backends["whisper"]["url"])
	assert.Equal(t, "de", cfg.Transcription.Language)
	assert.Equal(t, 2*time.Minute, cfg.Transcription.ChunkTimeout)
	assert.Equal(t, 120.0, cfg.Transcription.Policy.ChunkSeconds)
	assert.Equal(t, transcription.DefaultContextWindow, cfg.Transcription.ContextWindow)
	assert.Equal(t, string(transcription.FormatVerboseJSON), cfg.Transcription.Format)
	assert.True(t, cfg.Diarization.Enabled)
	assert.Equal(t, "llm", cfg.Diarization.Mode)
	assert.Equal(t, "http://localhost:11434", cfg.Diarization.LLM.BaseURL)
	assert.Equal(t, "/srv/evidence", cfg.Storage.BasePath)
	assert.Equal(t, "transcripts", cfg.Sidecar.Prefix)
	assert.Equal(t, ingest.DefaultConcurrency, cfg.Ingest.Concurrency)
	assert.False(t, cfg.Events.Enabled)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
backend: whisper
transcription:
  language: de
ingest:
  concurrency: 4
`)
	cfg, err := parse(t, "--config", path,
		"--backend", "openai",
		"--language", "en",
		"--format", "srt",
		"--diarize",
		"--speakers", "3",
		"--concurrency", "1",
		"--keep-intermediate",
	)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Backend)
	assert.Equal(t, "en", cfg.Transcription.Language)
	assert.Equal(t, "srt", cfg.Transcription.Format)
	assert.True(t, cfg.Diarization.Enabled)
	assert.Equal(t, 3, cfg.Diarization.Speakers)
	assert.Equal(t, 1, cfg.Ingest.Concurrency)
	assert.True(t, cfg.Ingest.KeepIntermediate)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "transcription:\n  format: mp3\n")
	_, err := parse(t, "--config", path)
	assert.Error(t, err)

	path = writeConfig(t, "diarization:\n  mode: guess\n")
	_, err = parse(t, "--config", path)
	assert.Error(t, err)
}

func TestBuildRequests(t *testing.T) {
	cfg := &Config{}
	cfg.Transcription.Language = "en"
	cfg.Transcription.Prompt = "Interview, case 17."
	cfg.Transcription.Format = "verbose_json"
	cfg.Diarization.Enabled = true
	cfg.Diarization.Speakers = 2

	reqs := buildRequests(cfg, []string{"a.wav", "b.mp4"})
	require.Len(t, reqs, 2)
	assert.Equal(t, "b.mp4", reqs[1].Path)
	assert.Equal(t, "en", reqs[0].Options.Language)
	assert.Equal(t, "Interview, case 17.", reqs[0].Options.Prompt)
	assert.Equal(t, transcription.FormatVerboseJSON, reqs[0].Options.ResponseFormat)
	assert.True(t, reqs[0].Diarize)
	assert.Equal(t, 2, reqs[0].SpeakerCount)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	failed := report(&buf, []*ingest.Outcome{
		{Path: "a.wav", Location: "file:///a.wav.transcript.json", Result: &transcription.Result{
			Segments: make([]transcription.Segment, 3), DurationSeconds: 12,
		}},
		{Path: "b.wav", Location: "file:///b.wav.transcript.json", Result: &transcription.Result{
			Segments: make([]transcription.Segment, 2), Gaps: make([]transcription.Gap, 1),
		}},
		{Path: "c.wav", Location: "file:///c.wav.transcript.json", Skipped: true},
		{Path: "d.wav", Err: errors.New("boom")},
	})

	assert.Equal(t, 1, failed)
	out := buf.String()
	assert.Contains(t, out, "OK   a.wav -> file:///a.wav.transcript.json (3 segments, 0 gaps, 12.0s)")
	assert.Contains(t, out, "PART b.wav")
	assert.Contains(t, out, "SKIP c.wav")
	assert.Contains(t, out, "FAIL d.wav: boom")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"--version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "scribe ")
}

func TestRun_NoFiles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: scribe")
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run([]string{"--nope"}, &stdout, &stderr))
}
