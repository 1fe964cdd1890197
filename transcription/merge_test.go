package transcription_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/transcription"
)

func chunkResult(dur float64, lang string, texts ...string) *transcription.Result {
	r := &transcription.Result{DurationSeconds: dur, Language: lang, ProcessingTimeSeconds: 1}
	for i, t := range texts {
		start := float64(i) * 10
		r.Segments = append(r.Segments, transcription.Segment{ID: i, Start: start, End: start + 10, Text: t, Confidence: 0.9})
	}
	r.Text = strings.Join(texts, " ")
	return r
}

func TestMerge_OffsetsByPriorDurations(t *testing.T) {
	merged := transcription.Merge([]*transcription.Result{
		chunkResult(100, "en", "alpha"),
		chunkResult(50, "fr", "beta"),
		chunkResult(30, "", "gamma"),
	})

	require.Len(t, merged.Segments, 3)
	starts := []float64{merged.Segments[0].Start, merged.Segments[1].Start, merged.Segments[2].Start}
	assert.Equal(t, []float64{0, 100, 150}, starts)
	for i, s := range merged.Segments {
		assert.Equal(t, i, s.ID)
		assert.Equal(t, s.Start+10, s.End)
	}
	assert.Equal(t, "alpha beta gamma", merged.Text)
	assert.Equal(t, "en", merged.Language)
	assert.InDelta(t, 3.0, merged.ProcessingTimeSeconds, 1e-9)
	assert.Equal(t, 180.0, merged.DurationSeconds)
	assert.Equal(t, 3, merged.Chunks)
}

func TestMerge_IsMonotonic(t *testing.T) {
	merged := transcription.Merge([]*transcription.Result{
		chunkResult(300, "en", "a", "b", "c"),
		chunkResult(300, "en", "d", "e"),
		chunkResult(120, "en", "f"),
	})
	for i := 1; i < len(merged.Segments); i++ {
		assert.GreaterOrEqual(t, merged.Segments[i].Start, merged.Segments[i-1].Start)
		assert.Equal(t, merged.Segments[i-1].ID+1, merged.Segments[i].ID)
	}
}

func TestMerge_EdgeCases(t *testing.T) {
	empty := transcription.Merge(nil)
	assert.Empty(t, empty.Text)
	assert.Empty(t, empty.Segments)
	assert.Zero(t, empty.DurationSeconds)

	single := chunkResult(42, "de", "nur eins")
	assert.Same(t, single, transcription.Merge([]*transcription.Result{single}))
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	first := chunkResult(100, "en", "alpha")
	second := chunkResult(50, "en", "beta")
	transcription.Merge([]*transcription.Result{first, second})
	assert.Equal(t, 0.0, second.Segments[0].Start)
	assert.Equal(t, 0, second.Segments[0].ID)
}

func TestMergeChunks_FailedChunkLeavesGap(t *testing.T) {
	outcomes := []transcription.ChunkOutcome{
		{Chunk: media.AudioChunk{Index: 0, DurationSeconds: 300}, Result: chunkResult(300, "en", "one")},
		{Chunk: media.AudioChunk{Index: 1, StartSeconds: 300, DurationSeconds: 300}, Err: errors.New("backend 503")},
		{Chunk: media.AudioChunk{Index: 2, StartSeconds: 600, DurationSeconds: 120}, Result: chunkResult(120, "en", "three")},
	}
	merged := transcription.MergeChunks(outcomes)

	require.Len(t, merged.Segments, 2)
	assert.Equal(t, 1, merged.Segments[1].ID)
	assert.Equal(t, 600.0, merged.Segments[1].Start)
	require.Len(t, merged.Gaps, 1)
	assert.Equal(t, transcription.Gap{ChunkIndex: 1, Start: 300, End: 600, Reason: "backend 503"}, merged.Gaps[0])
	assert.Equal(t, "one three", merged.Text)
	assert.Equal(t, 720.0, merged.DurationSeconds)
}

func TestMergeChunks_UsesNominalDurationWhenUnreported(t *testing.T) {
	first := chunkResult(0, "en", "one")
	merged := transcription.MergeChunks([]transcription.ChunkOutcome{
		{Chunk: media.AudioChunk{Index: 0, DurationSeconds: 300}, Result: first},
		{Chunk: media.AudioChunk{Index: 1, DurationSeconds: 300}, Result: chunkResult(0, "en", "two")},
	})
	assert.Equal(t, 300.0, merged.Segments[1].Start)
}

func TestMerge_LanguageIsFirstChunksEvenWhenEmpty(t *testing.T) {
	merged := transcription.Merge([]*transcription.Result{
		chunkResult(10, "", "um"),
		chunkResult(10, "fr", "bonjour"),
	})
	assert.Empty(t, merged.Language)
}
