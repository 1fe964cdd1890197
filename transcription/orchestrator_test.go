package transcription_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/transcription/transcriptiontest"
)

type fakeProber struct {
	md  *media.Metadata
	err error
}

func (p fakeProber) Probe(context.Context, string) (*media.Metadata, error) { return p.md, p.err }

// fakeSplitter writes real chunk files so cleanup can be observed.
type fakeSplitter struct {
	dir      string
	duration float64
	calls    int
	empty    bool
	skip     map[int]bool
}

func (s *fakeSplitter) SplitAudioFile(_ context.Context, _ string, seg float64, _ media.ConversionOptions) ([]media.AudioChunk, error) {
	s.calls++
	if s.empty {
		return nil, nil
	}
	var chunks []media.AudioChunk
	for i := 0; float64(i)*seg < s.duration; i++ {
		start := float64(i) * seg
		length := seg
		if start+length > s.duration {
			length = s.duration - start
		}
		if s.skip[i] {
			continue
		}
		p := filepath.Join(s.dir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			return nil, err
		}
		chunks = append(chunks, media.AudioChunk{Path: p, Index: i, StartSeconds: start, DurationSeconds: length})
	}
	return chunks, nil
}

type sleepRecorder struct{ calls []time.Duration }

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

func verbose(text string, dur float64, segs ...float64) *transcription.Response {
	resp := &transcription.Response{Text: text, Language: "en", DurationSeconds: dur}
	for i := 0; i+1 < len(segs); i += 2 {
		resp.Segments = append(resp.Segments, transcription.ResponseSegment{Start: segs[i], End: segs[i+1], Text: text})
	}
	return resp
}

func newOrchestrator(t *testing.T, b transcription.Backend, md *media.Metadata, cfg transcription.Config) (*transcription.Orchestrator, *fakeSplitter, *sleepRecorder) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "chunks")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	split := &fakeSplitter{dir: dir, duration: md.DurationSeconds}
	o := transcription.NewOrchestrator(b, fakeProber{md: md}, split, cfg, nil)
	rec := &sleepRecorder{}
	o.SetSleep(rec.sleep)
	return o, split, rec
}

func TestTranscribe_ShortFileSingleCall(t *testing.T) {
	backend := transcriptiontest.New("fake", func(context.Context, transcription.Request) (*transcription.Response, error) {
		return verbose("hello", 0, 0, 2), nil
	})
	o, split, rec := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 300, SizeBytes: 10 << 20}, transcription.Config{})

	res, err := o.Transcribe(context.Background(), "/evidence/short.mp3", transcription.Options{Prompt: "names: Alice", Language: "en"})
	require.NoError(t, err)

	assert.Zero(t, split.calls)
	assert.Empty(t, rec.calls)
	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/evidence/short.mp3", reqs[0].AudioPath)
	assert.Equal(t, "names: Alice", reqs[0].Prompt)
	assert.Equal(t, transcription.FormatVerboseJSON, reqs[0].ResponseFormat)
	assert.Equal(t, 300.0, res.DurationSeconds)
	assert.Equal(t, "/evidence/short.mp3", res.SourceFile)
	assert.Equal(t, 1, res.Chunks)
}

func TestTranscribe_ShortFileFailureIsFatal(t *testing.T) {
	backend := transcriptiontest.New("fake", func(context.Context, transcription.Request) (*transcription.Response, error) {
		return nil, errors.New("connection refused")
	})
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 60}, transcription.Config{})

	_, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTranscription))
}

func TestTranscribe_TwelveMinutesInThreeChunks(t *testing.T) {
	texts := map[string]string{
		"chunk_000.mp3": strings.Repeat("x", 50) + strings.Repeat("first ", 30),
		"chunk_001.mp3": "second chunk",
		"chunk_002.mp3": "third",
	}
	backend := transcriptiontest.New("fake", func(_ context.Context, req transcription.Request) (*transcription.Response, error) {
		text := texts[filepath.Base(req.AudioPath)]
		return verbose(text, 0, 0, 100, 100, 200), nil
	})
	o, split, rec := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 720, SizeBytes: 8 << 20}, transcription.Config{})

	res, err := o.Transcribe(context.Background(), "/evidence/interview.mp3", transcription.Options{Prompt: "seed"})
	require.NoError(t, err)

	assert.Equal(t, 1, split.calls)
	reqs := backend.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "seed", reqs[0].Prompt)
	assert.Equal(t, transcription.ContextHint(texts["chunk_000.mp3"], 100), reqs[1].Prompt)
	assert.Len(t, []rune(reqs[1].Prompt), 100)
	assert.Equal(t, "second chunk", reqs[2].Prompt)

	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.calls)

	require.Len(t, res.Segments, 6)
	wantStarts := []float64{0, 100, 300, 400, 600, 700}
	for i, s := range res.Segments {
		assert.Equal(t, i, s.ID)
		assert.Equal(t, wantStarts[i], s.Start)
	}
	assert.Equal(t, 720.0, res.DurationSeconds)
	assert.Equal(t, 3, res.Chunks)
	assert.Empty(t, res.Gaps)

	entries, err := os.ReadDir(split.dir)
	assert.True(t, os.IsNotExist(err) || len(entries) == 0, "chunk dir must be removed")
}

func TestTranscribe_KeepChunks(t *testing.T) {
	backend := transcriptiontest.New("fake", transcriptiontest.ByFile(nil, nil))
	o, split, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 700}, transcription.Config{KeepChunks: true})

	res, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{ResponseFormat: transcription.FormatText})
	require.NoError(t, err)
	assert.Empty(t, res.Segments)
	_, statErr := os.Stat(filepath.Join(split.dir, "chunk_000.mp3"))
	assert.NoError(t, statErr)
}

func TestTranscribe_PartialFailureContinues(t *testing.T) {
	backend := transcriptiontest.New("fake", transcriptiontest.ByFile(
		map[string]*transcription.Response{
			"chunk_000.mp3": verbose("opening statement", 0, 0, 10),
			"chunk_002.mp3": verbose("closing", 0, 0, 10),
		},
		map[string]error{"chunk_001.mp3": errors.New("503 from backend")},
	))
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 720}, transcription.Config{})

	res, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{})
	require.NoError(t, err)

	reqs := backend.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "opening statement", reqs[2].Prompt, "hint carries last successful text")

	require.Len(t, res.Segments, 2)
	assert.Equal(t, 600.0, res.Segments[1].Start)
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, 1, res.Gaps[0].ChunkIndex)
	assert.Equal(t, 300.0, res.Gaps[0].Start)
	assert.Equal(t, "opening statement closing", res.Text)
}

func TestTranscribe_AllChunksFail(t *testing.T) {
	backend := transcriptiontest.New("fake", func(context.Context, transcription.Request) (*transcription.Response, error) {
		return nil, errors.New("unreachable")
	})
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 900}, transcription.Config{})

	_, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTranscription))
	assert.Len(t, backend.Requests(), 3)
}

func TestTranscribe_ZeroChunksIsConversionError(t *testing.T) {
	backend := transcriptiontest.New("fake", nil)
	o, split, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 900}, transcription.Config{})
	split.empty = true

	_, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConversion))
	assert.Empty(t, backend.Requests())
}

func TestTranscribe_ProbeFailure(t *testing.T) {
	backend := transcriptiontest.New("fake", nil)
	o := transcription.NewOrchestrator(backend, fakeProber{err: errors.New("moov atom not found")}, &fakeSplitter{}, transcription.Config{}, nil)

	_, err := o.Transcribe(context.Background(), "/evidence/broken.mp4", transcription.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProbe))
	assert.Empty(t, backend.Requests())
}

func TestTranscribe_InvalidFormat(t *testing.T) {
	backend := transcriptiontest.New("fake", nil)
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 10}, transcription.Config{})

	_, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{ResponseFormat: "xml"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestTranscribe_ChunkTimeout(t *testing.T) {
	backend := transcriptiontest.New("fake", func(ctx context.Context, _ transcription.Request) (*transcription.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 10}, transcription.Config{ChunkTimeout: 10 * time.Millisecond})

	_, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTranscription))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTimeout))
}

func TestTranscribeChunks_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := transcriptiontest.New("fake", func(context.Context, transcription.Request) (*transcription.Response, error) {
		cancel()
		return verbose("only", 0, 0, 1), nil
	})
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 10}, transcription.Config{})

	chunks := []media.AudioChunk{{Path: "a", Index: 0, DurationSeconds: 5}, {Path: "b", Index: 1, DurationSeconds: 5}}
	_, err := o.TranscribeChunks(ctx, "/evidence/a.mp3", chunks, transcription.Options{})
	require.Error(t, err)
	assert.Len(t, backend.Requests(), 1)
}

func TestTranscribeChunks_CustomContextWindow(t *testing.T) {
	backend := transcriptiontest.New("fake", func(context.Context, transcription.Request) (*transcription.Response, error) {
		return verbose("abcdefghij", 0, 0, 1), nil
	})
	o, _, _ := newOrchestrator(t, backend, &media.Metadata{DurationSeconds: 10}, transcription.Config{ContextWindow: 4})

	chunks := []media.AudioChunk{{Path: "a", DurationSeconds: 5}, {Path: "b", Index: 1, DurationSeconds: 5}}
	_, err := o.TranscribeChunks(context.Background(), "/evidence/a.mp3", chunks, transcription.Options{})
	require.NoError(t, err)
	assert.Equal(t, "ghij", backend.Requests()[1].Prompt)
}

func fixedBackend() *transcriptiontest.Backend {
	return transcriptiontest.New("fake", func(context.Context, transcription.Request) (*transcription.Response, error) {
		return verbose("said", 0, 0, 5), nil
	})
}

func TestTranscribeChunks_MissingIndexKeepsTruePosition(t *testing.T) {
	o, _, _ := newOrchestrator(t, fixedBackend(), &media.Metadata{DurationSeconds: 600}, transcription.Config{})

	chunks := []media.AudioChunk{
		{Path: "a", Index: 0, StartSeconds: 0, DurationSeconds: 200},
		{Path: "c", Index: 2, StartSeconds: 400, DurationSeconds: 200},
	}
	res, err := o.TranscribeChunks(context.Background(), "/evidence/a.mp3", chunks, transcription.Options{})
	require.NoError(t, err)

	require.Len(t, res.Segments, 2)
	assert.Equal(t, 400.0, res.Segments[1].Start)
	assert.Equal(t, 1, res.Segments[1].ID)
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, transcription.Gap{ChunkIndex: 1, Start: 200, End: 400, Reason: transcription.MissingChunkReason}, res.Gaps[0])
}

func TestTranscribe_SplitterDroppedChunks(t *testing.T) {
	tests := []struct {
		name      string
		skip      int
		wantStart float64
		wantGap   transcription.Gap
	}{
		{"middle", 1, 600, transcription.Gap{ChunkIndex: 1, Start: 300, End: 600, Reason: transcription.MissingChunkReason}},
		{"last", 2, 300, transcription.Gap{ChunkIndex: 2, Start: 600, End: 720, Reason: transcription.MissingChunkReason}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, split, _ := newOrchestrator(t, fixedBackend(), &media.Metadata{DurationSeconds: 720}, transcription.Config{})
			split.skip = map[int]bool{tt.skip: true}

			res, err := o.Transcribe(context.Background(), "/evidence/a.mp3", transcription.Options{})
			require.NoError(t, err)
			require.Len(t, res.Segments, 2)
			assert.Equal(t, tt.wantStart, res.Segments[1].Start)
			require.Len(t, res.Gaps, 1)
			assert.Equal(t, tt.wantGap, res.Gaps[0])
		})
	}
}

func TestTranscribe_CleanupLeavesSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "evidence.mp3")
	sibling := filepath.Join(dir, "other_case_file.wav")
	require.NoError(t, os.WriteFile(source, []byte("media"), 0o600))
	require.NoError(t, os.WriteFile(sibling, []byte("media"), 0o600))

	o, split, _ := newOrchestrator(t, fixedBackend(), &media.Metadata{DurationSeconds: 720}, transcription.Config{})
	split.dir = dir

	_, err := o.Transcribe(context.Background(), source, transcription.Options{})
	require.NoError(t, err)

	assert.FileExists(t, source)
	assert.FileExists(t, sibling)
	assert.NoFileExists(t, filepath.Join(dir, "chunk_000.mp3"))
	assert.NoFileExists(t, filepath.Join(dir, "chunk_002.mp3"))
}
