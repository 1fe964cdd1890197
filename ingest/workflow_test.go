package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/diarization"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/sidecar"
	"github.com/kbukum/scribe/storage/local"
	"github.com/kbukum/scribe/transcription"
)

type fakeProber struct {
	md  map[string]*media.Metadata
	err error
}

func (p *fakeProber) Probe(_ context.Context, path string) (*media.Metadata, error) {
	if p.err != nil {
		return nil, p.err
	}
	if md, ok := p.md[filepath.Base(path)]; ok {
		return md, nil
	}
	return &media.Metadata{Path: path, Kind: media.KindAudio, DurationSeconds: 30}, nil
}

// fakeConverter writes real output files so cleanup can be observed.
type fakeConverter struct {
	dir          string
	extracted    []string
	standardized []string
	mu           sync.Mutex
}

func (c *fakeConverter) write(name string) string {
	p := filepath.Join(c.dir, name)
	_ = os.WriteFile(p, []byte("audio"), 0o644)
	return p
}

func (c *fakeConverter) ExtractAudioFromVideo(_ context.Context, input, format string, _ media.ConversionOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.write(filepath.Base(input) + ".extracted." + format)
	c.extracted = append(c.extracted, out)
	return out, nil
}

func (c *fakeConverter) Standardize(_ context.Context, input string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.write(filepath.Base(input) + ".std.mp3")
	c.standardized = append(c.standardized, out)
	return out, nil
}

type fakeTranscriber struct {
	paths    []string
	fail     map[string]error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	mu       sync.Mutex
}

func (t *fakeTranscriber) Transcribe(_ context.Context, path string, _ transcription.Options) (*transcription.Result, error) {
	n := t.inFlight.Add(1)
	defer t.inFlight.Add(-1)
	for {
		m := t.maxSeen.Load()
		if n <= m || t.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(t.delay)

	t.mu.Lock()
	t.paths = append(t.paths, path)
	t.mu.Unlock()
	if err, ok := t.fail[filepath.Base(path)]; ok {
		return nil, err
	}
	return &transcription.Result{
		Text:            "hello there",
		Segments:        []transcription.Segment{{ID: 0, Start: 0, End: 2, Text: "hello there", Confidence: 0.9}},
		Language:        "en",
		DurationSeconds: 30,
		SourceFile:      path,
		Chunks:          1,
	}, nil
}

type labelAll struct{}

func (labelAll) Name() string { return "fake" }

func (labelAll) Process(_ context.Context, res *transcription.Result, _ diarization.Options) *transcription.Result {
	out := res.Clone()
	for i := range out.Segments {
		out.Segments[i].Speaker = "Interviewer"
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type harness struct {
	dir   string
	conv  *fakeConverter
	tr    *fakeTranscriber
	pub   *recordingPublisher
	store *sidecar.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	st, err := local.NewStorage(filepath.Join(dir, "store"))
	require.NoError(t, err)
	return &harness{
		dir:   dir,
		conv:  &fakeConverter{dir: dir},
		tr:    &fakeTranscriber{},
		pub:   &recordingPublisher{},
		store: sidecar.New(st, "sidecars"),
	}
}

func (h *harness) workflow(prober ingest.Prober, cfg ingest.Config, opts ...ingest.Option) *ingest.Workflow {
	opts = append([]ingest.Option{ingest.WithPublisher(h.pub), ingest.WithBackendName("openai")}, opts...)
	return ingest.New(prober, h.conv, h.tr, h.store, cfg, opts...)
}

func TestProcess_AudioFile(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(&fakeProber{}, ingest.Config{})

	out, err := wf.Process(context.Background(), ingest.Request{Path: "/cases/1/call.wav"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/cases/1/call.wav"}, h.tr.paths)
	assert.Empty(t, h.conv.extracted)
	assert.Equal(t, "/cases/1/call.wav", out.Result.SourceFile)
	assert.Equal(t, "sidecars/cases/1/call.wav.transcript.json", out.SidecarKey)

	doc, err := h.store.Load(context.Background(), "/cases/1/call.wav")
	require.NoError(t, err)
	assert.Equal(t, "openai", doc.Backend)
	assert.Empty(t, doc.Diarizer)
	assert.Equal(t, "hello there", doc.Transcript.Text)

	require.Len(t, h.pub.events, 1)
	ev := h.pub.events[0]
	assert.Equal(t, events.TypeTranscriptReady, ev.Type)
	assert.Equal(t, "/cases/1/call.wav", ev.Subject)
	assert.Equal(t, 1, ev.Data["segments"])
	assert.Equal(t, false, ev.Data["diarized"])
}

func TestProcess_VideoIsExtractedAndCleanedUp(t *testing.T) {
	h := newHarness(t)
	prober := &fakeProber{md: map[string]*media.Metadata{
		"interview.mp4": {Kind: media.KindVideo, Video: &media.VideoInfo{HasAudio: true}},
	}}
	wf := h.workflow(prober, ingest.Config{Standardize: true})

	_, err := wf.Process(context.Background(), ingest.Request{Path: "/cases/2/interview.mp4"})
	require.NoError(t, err)

	require.Len(t, h.conv.extracted, 1)
	require.Len(t, h.conv.standardized, 1)
	assert.Equal(t, h.conv.standardized, h.tr.paths)
	assert.NoFileExists(t, h.conv.extracted[0])
	assert.NoFileExists(t, h.conv.standardized[0])
}

func TestProcess_KeepIntermediate(t *testing.T) {
	h := newHarness(t)
	prober := &fakeProber{md: map[string]*media.Metadata{
		"interview.mp4": {Kind: media.KindVideo, Video: &media.VideoInfo{HasAudio: true}},
	}}
	wf := h.workflow(prober, ingest.Config{KeepIntermediate: true})

	_, err := wf.Process(context.Background(), ingest.Request{Path: "/cases/2/interview.mp4"})
	require.NoError(t, err)
	require.Len(t, h.conv.extracted, 1)
	assert.FileExists(t, h.conv.extracted[0])
	assert.Empty(t, h.conv.standardized)
}

func TestProcess_SilentVideo(t *testing.T) {
	h := newHarness(t)
	prober := &fakeProber{md: map[string]*media.Metadata{
		"cctv.mp4": {Kind: media.KindVideo, Video: &media.VideoInfo{HasAudio: false}},
	}}
	wf := h.workflow(prober, ingest.Config{})

	out, err := wf.Process(context.Background(), ingest.Request{Path: "/cases/3/cctv.mp4"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConversion))
	assert.Equal(t, err, out.Err)
	assert.Empty(t, h.tr.paths)

	require.Len(t, h.pub.events, 1)
	assert.Equal(t, events.TypeTranscriptFailed, h.pub.events[0].Type)
}

func TestProcess_ProbeFailure(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(&fakeProber{err: errors.New("exit status 1")}, ingest.Config{})

	_, err := wf.Process(context.Background(), ingest.Request{Path: "/x.wav"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProbe))
}

func TestProcess_Diarize(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(&fakeProber{}, ingest.Config{}, ingest.WithDiarizer(labelAll{}))

	out, err := wf.Process(context.Background(), ingest.Request{Path: "/a.wav", Diarize: true, SpeakerCount: 2})
	require.NoError(t, err)
	assert.True(t, out.Result.Diarized())

	doc, err := h.store.Load(context.Background(), "/a.wav")
	require.NoError(t, err)
	assert.Equal(t, "fake", doc.Diarizer)
	assert.Equal(t, "Interviewer", doc.Transcript.Segments[0].Speaker)
	assert.Equal(t, true, h.pub.events[0].Data["diarized"])
}

func TestProcess_DiarizeNotRequested(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(&fakeProber{}, ingest.Config{}, ingest.WithDiarizer(labelAll{}))

	out, err := wf.Process(context.Background(), ingest.Request{Path: "/a.wav"})
	require.NoError(t, err)
	assert.False(t, out.Result.Diarized())
}

func TestProcess_SkipExisting(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(&fakeProber{}, ingest.Config{SkipExisting: true})

	_, err := wf.Process(context.Background(), ingest.Request{Path: "/a.wav"})
	require.NoError(t, err)
	out, err := wf.Process(context.Background(), ingest.Request{Path: "/a.wav"})
	require.NoError(t, err)

	assert.True(t, out.Skipped)
	assert.Len(t, h.tr.paths, 1)
	assert.Len(t, h.pub.events, 1)
}

func TestProcess_PublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.pub.err = errors.New("broker not available")
	wf := h.workflow(&fakeProber{}, ingest.Config{})

	out, err := wf.Process(context.Background(), ingest.Request{Path: "/a.wav"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.SidecarKey)
}

func TestProcessBatch(t *testing.T) {
	h := newHarness(t)
	h.tr.delay = 20 * time.Millisecond
	h.tr.fail = map[string]error{"bad.wav": apperrors.TranscriptionError("bad.wav", "every chunk failed", nil)}
	wf := h.workflow(&fakeProber{}, ingest.Config{Concurrency: 2})

	reqs := []ingest.Request{{Path: "/a.wav"}, {Path: "/bad.wav"}, {Path: "/c.wav"}, {Path: "/d.wav"}}
	outs := wf.ProcessBatch(context.Background(), reqs)

	require.Len(t, outs, 4)
	for i, out := range outs {
		assert.Equal(t, reqs[i].Path, out.Path)
	}
	assert.NoError(t, outs[0].Err)
	assert.Error(t, outs[1].Err)
	assert.NoError(t, outs[2].Err)
	assert.NoError(t, outs[3].Err)
	assert.LessOrEqual(t, h.tr.maxSeen.Load(), int32(2))
	assert.Len(t, h.tr.paths, 4)
}

func TestProcessBatch_CanceledContext(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(&fakeProber{}, ingest.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outs := wf.ProcessBatch(ctx, []ingest.Request{{Path: "/a.wav"}, {Path: "/b.wav"}})

	for _, out := range outs {
		assert.ErrorIs(t, out.Err, context.Canceled)
	}
	assert.Empty(t, h.tr.paths)
}
