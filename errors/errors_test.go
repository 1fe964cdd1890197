package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	if err := New(ErrCodeTimeout, "timed out"); !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if err := New(ErrCodeProbe, "bad container"); err.Retryable {
		t.Error("PROBE_FAILED should not be retryable")
	}
}

func TestProbeError_CarriesSource(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := ProbeError("/evidence/a.wav", "no decodable streams", cause)
	if err.Code != ErrCodeProbe {
		t.Errorf("expected PROBE_FAILED, got %s", err.Code)
	}
	if err.Details["source"] != "/evidence/a.wav" {
		t.Errorf("expected source detail, got %v", err.Details["source"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if !strings.Contains(err.Error(), "no decodable streams") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestPipelineConstructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		retryable bool
	}{
		{"probe", ProbeError("a", "x", nil), ErrCodeProbe, false},
		{"conversion", ConversionError("a", "x", nil), ErrCodeConversion, false},
		{"transcription", TranscriptionError("a", "x", nil), ErrCodeTranscription, true},
		{"diarization", DiarizationError("x", nil), ErrCodeDiarization, false},
		{"timeout", Timeout("ffmpeg"), ErrCodeTimeout, true},
		{"external", ExternalServiceError("whisper", nil), ErrCodeExternalService, true},
		{"internal", Internal(nil), ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, tt.err.Retryable)
			}
		})
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := ConversionError("in.wav", "missing output", nil).
		WithDetails(map[string]any{"chunk": 2, "segment_seconds": 300.0})
	if err.Details["source"] != "in.wav" || err.Details["chunk"] != 2 {
		t.Errorf("details not merged: %v", err.Details)
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := New(ErrCodeInternal, "x").WithDetail("k", "v")
	if err.Details["k"] != "v" {
		t.Errorf("expected k=v, got %v", err.Details)
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeNotFound, "gone")
	if got := err.Error(); got != "NOT_FOUND: gone" {
		t.Errorf("unexpected format %q", got)
	}
	err.WithCause(fmt.Errorf("boom"))
	if got := err.Error(); got != "NOT_FOUND: gone (cause: boom)" {
		t.Errorf("unexpected format %q", got)
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("chunk 1: %w", TranscriptionError("a.mp3", "backend down", nil))
	if !IsCode(wrapped, ErrCodeTranscription) {
		t.Error("expected IsCode to see through wrapping")
	}
	if IsCode(wrapped, ErrCodeProbe) {
		t.Error("unexpected match on PROBE_FAILED")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeTranscription) {
		t.Error("plain error must not match")
	}
}

func TestIsCode_Cause(t *testing.T) {
	err := TranscriptionError("a.mp3", "backend call failed", Timeout("transcribe a.mp3"))
	if !IsCode(err, ErrCodeTimeout) {
		t.Error("expected IsCode to follow Cause")
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error is not an AppError")
	}
	appErr, ok := AsAppError(fmt.Errorf("wrap: %w", RateLimited()))
	if !ok || appErr.Code != ErrCodeRateLimited {
		t.Errorf("expected RATE_LIMITED, got %v", appErr)
	}
	if !IsAppError(appErr) {
		t.Error("IsAppError should be true")
	}
}
