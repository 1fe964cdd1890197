package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "scribe", buf)
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return m
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "info").WithComponent("orchestrator")

	log.Info("chunk transcribed", Fields(FieldChunk, 2, FieldSource, "/evidence/a.wav"))

	m := decode(t, &buf)
	if m["message"] != "chunk transcribed" {
		t.Errorf("unexpected message %v", m["message"])
	}
	if m[FieldComponent] != "orchestrator" {
		t.Errorf("expected component field, got %v", m[FieldComponent])
	}
	if m[FieldChunk] != float64(2) {
		t.Errorf("expected chunk=2, got %v", m[FieldChunk])
	}
	if m["service"] != "scribe" {
		t.Errorf("expected service=scribe, got %v", m["service"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "warn")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be written, got %q", buf.String())
	}
}

func TestWithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "debug").
		WithFields(map[string]interface{}{FieldBackend: "openai"}).
		WithError(errors.New("boom"))
	log.Error("failed")

	m := decode(t, &buf)
	if m[FieldBackend] != "openai" {
		t.Errorf("expected backend field, got %v", m[FieldBackend])
	}
	if m["error"] != "boom" {
		t.Errorf("expected error field, got %v", m["error"])
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxSize != 100 || cfg.MaxBackups != 3 || cfg.MaxAge != 28 {
		t.Errorf("unexpected rotation defaults: %+v", cfg)
	}

	file := Config{Output: "file"}
	file.ApplyDefaults()
	if file.FilePath == "" {
		t.Error("file output should default a file path")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"bad level", Config{Level: "loud", Format: "json", Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: "json", Output: "syslog"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileOutputRotatesThroughLumberjack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.log")
	cfg := &Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1}
	w := outputWriter(cfg)
	if _, ok := w.(interface{ Rotate() error }); !ok {
		t.Fatalf("expected a rotating writer for file output, got %T", w)
	}
}

func TestRegisterAndGet(t *testing.T) {
	var buf bytes.Buffer
	custom := jsonLogger(&buf, "info")
	Register("custom-test", custom)
	if Get("custom-test") != custom {
		t.Error("expected registered logger")
	}
	if Get("unregistered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestFieldHelpers(t *testing.T) {
	if f := Fields("a", 1, "b"); len(f) != 1 || f["a"] != 1 {
		t.Errorf("odd trailing key should be ignored, got %v", f)
	}
	if f := Fields(42, "x"); len(f) != 0 {
		t.Errorf("non-string key should be ignored, got %v", f)
	}
	ef := ErrorFields("probe", errors.New("bad"))
	if ef[FieldOperation] != "probe" || ef[FieldError] != "bad" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("split", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", df)
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("nothing happens")
}
