package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/transcription"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "interview.mp3")
	require.NoError(t, os.WriteFile(p, []byte("ID3audio"), 0o600))
	return p
}

func TestTranscribe_VerboseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "0.2", r.FormValue("temperature"))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, "tail of last chunk", r.FormValue("prompt"))
		assert.Equal(t, []string{"segment", "word"}, r.MultipartForm.Value["timestamp_granularities[]"])
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "interview.mp3", hdr.Filename)
		assert.Equal(t, "audio/mpeg", hdr.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     "Good morning. State your name.",
			"language": "english",
			"duration": 6.0,
			"segments": []map[string]any{
				{"start": 0.0, "end": 2.0, "text": " Good morning.", "avg_logprob": -0.2},
				{"start": 2.0, "end": 5.5, "text": " State your name.", "avg_logprob": -0.4},
			},
		})
	}))
	defer srv.Close()

	b, err := New(Config{BaseURL: srv.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	resp, err := b.Transcribe(context.Background(), transcription.Request{
		AudioPath:              writeAudio(t),
		Language:               "en",
		Prompt:                 "tail of last chunk",
		Temperature:            0.2,
		ResponseFormat:         transcription.FormatVerboseJSON,
		TimestampGranularities: []string{"segment", "word"},
	})
	require.NoError(t, err)
	assert.Equal(t, "english", resp.Language)
	assert.Equal(t, 6.0, resp.DurationSeconds)
	require.Len(t, resp.Segments, 2)
	assert.InDelta(t, -0.4, *resp.Segments[1].AvgLogprob, 1e-9)
}

func TestTranscribe_TextFormatReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "srt", r.FormValue("response_format"))
		assert.Empty(t, r.MultipartForm.Value["timestamp_granularities[]"])
		_, _ = w.Write([]byte("1\n00:00:00,000 --> 00:00:02,000\nhello\n"))
	}))
	defer srv.Close()

	b, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	resp, err := b.Transcribe(context.Background(), transcription.Request{
		AudioPath:              writeAudio(t),
		ResponseFormat:         transcription.FormatSRT,
		TimestampGranularities: []string{"segment"},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "hello")
	assert.Empty(t, resp.Segments)
}

func TestTranscribe_RateLimitIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	b, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = b.Transcribe(context.Background(), transcription.Request{AudioPath: writeAudio(t)})
	require.Error(t, err)
	assert.True(t, httpclient.IsRateLimit(err))
	assert.True(t, httpclient.IsRetryable(err))
}

func TestTranscribe_MissingFile(t *testing.T) {
	b, err := New(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = b.Transcribe(context.Background(), transcription.Request{AudioPath: "/nonexistent/a.mp3"})
	require.Error(t, err)
}

func TestFactory(t *testing.T) {
	b, err := Factory()(map[string]any{"api_key": "k", "model": "gpt-4o-transcribe"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, b.Name())
	assert.Equal(t, "gpt-4o-transcribe", b.(*Backend).cfg.Model)
	assert.Equal(t, defaultBaseURL, b.(*Backend).cfg.BaseURL)
}
