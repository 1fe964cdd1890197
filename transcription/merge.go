package transcription

import (
	"math"
	"strings"

	"github.com/kbukum/scribe/media"
)

// Merge combines ordered per-chunk results into one timeline. Each chunk's
// segments are shifted by the summed DurationSeconds of the chunks before it
// and renumbered from 0. Text is space-joined, Language is the first
// chunk's (even when empty) and ProcessingTimeSeconds is summed.
//
// Zero results give an empty Result; a single result is returned as is.
func Merge(results []*Result) *Result {
	switch len(results) {
	case 0:
		return &Result{Segments: []Segment{}}
	case 1:
		return results[0]
	}

	m := newMerger()
	for _, r := range results {
		m.add(r)
		m.offset += r.DurationSeconds
	}
	out := m.result()
	out.DurationSeconds = m.offset
	out.Chunks = len(results)
	return out
}

// ChunkOutcome is one step of the chunk fold: the chunk and either its
// result or the error that stopped it.
type ChunkOutcome struct {
	Chunk  media.AudioChunk
	Result *Result
	Err    error
}

// Succeeded reports whether the chunk produced a result.
func (o ChunkOutcome) Succeeded() bool { return o.Err == nil && o.Result != nil }

// MissingChunkReason is the Gap reason for chunk indices the splitter never
// produced.
const MissingChunkReason = "chunk missing from split"

// MergeChunks merges outcomes in chunk order. A failed chunk contributes no
// segments but still advances the offset by its nominal duration and is
// recorded in Gaps. Each chunk is placed at its own StartSeconds when that
// lies past the running offset, and indices absent from the sequence are
// recorded as one Gap per run. A lone successful outcome for chunk 0 is
// returned unchanged.
func MergeChunks(outcomes []ChunkOutcome) *Result {
	if len(outcomes) == 1 && outcomes[0].Succeeded() &&
		outcomes[0].Chunk.Index == 0 && outcomes[0].Chunk.StartSeconds == 0 {
		return outcomes[0].Result
	}

	m := newMerger()
	next := 0
	for _, o := range outcomes {
		c := o.Chunk
		if c.Index > next {
			end := math.Max(m.offset, c.StartSeconds)
			m.gaps = append(m.gaps, Gap{ChunkIndex: next, Start: m.offset, End: end, Reason: MissingChunkReason})
		}
		if c.StartSeconds > m.offset {
			m.offset = c.StartSeconds
		}
		next = c.Index + 1

		if !o.Succeeded() {
			reason := "no result"
			if o.Err != nil {
				reason = o.Err.Error()
			}
			m.gaps = append(m.gaps, Gap{
				ChunkIndex: c.Index,
				Start:      m.offset,
				End:        m.offset + c.DurationSeconds,
				Reason:     reason,
			})
			m.offset += c.DurationSeconds
			continue
		}
		m.add(o.Result)
		if o.Result.DurationSeconds > 0 {
			m.offset += o.Result.DurationSeconds
		} else {
			m.offset += c.DurationSeconds
		}
	}
	out := m.result()
	out.DurationSeconds = m.offset
	out.Chunks = len(outcomes)
	return out
}

type merger struct {
	offset   float64
	nextID   int
	added    int
	texts    []string
	segments []Segment
	gaps     []Gap
	language string
	source   string
	procTime float64
}

func newMerger() *merger {
	return &merger{segments: []Segment{}}
}

func (m *merger) add(r *Result) {
	for _, s := range r.Segments {
		s.ID = m.nextID
		m.nextID++
		s.Start += m.offset
		s.End += m.offset
		m.segments = append(m.segments, s)
	}
	if t := strings.TrimSpace(r.Text); t != "" {
		m.texts = append(m.texts, t)
	}
	if m.added == 0 {
		m.language = r.Language
	}
	m.added++
	if m.source == "" {
		m.source = r.SourceFile
	}
	m.procTime += r.ProcessingTimeSeconds
}

func (m *merger) result() *Result {
	return &Result{
		Text:                  strings.Join(m.texts, " "),
		Segments:              m.segments,
		Language:              m.language,
		ProcessingTimeSeconds: m.procTime,
		SourceFile:            m.source,
		Gaps:                  m.gaps,
	}
}
