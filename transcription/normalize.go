package transcription

import (
	"math"
	"strings"
)

// DefaultConfidence is assigned to segments whose backend reported none.
const DefaultConfidence = 0.9

// Normalize converts a backend response into a Result. SRT and WebVTT bodies
// are split into one segment per cue. Plain text (and JSON without segments,
// or subtitles without parseable cues) becomes one segment spanning
// [0, durationSeconds] with confidence 1. Segment ids run 0..n-1.
func Normalize(resp *Response, format ResponseFormat, durationSeconds float64) *Result {
	text := strings.TrimSpace(resp.Text)
	dur := durationSeconds
	if resp.DurationSeconds > 0 {
		dur = resp.DurationSeconds
	}
	res := &Result{
		Text:            text,
		Language:        resp.Language,
		DurationSeconds: dur,
		Chunks:          1,
	}

	if format == FormatSRT || format == FormatVTT {
		if cues := parseCues(resp.Text); len(cues) > 0 {
			res.Segments = cues
			res.Text = joinText(cues)
			return res
		}
	}

	if !format.Structured() || len(resp.Segments) == 0 {
		res.Segments = []Segment{}
		if text != "" {
			// Span the probed length; the backend gave no breakdown.
			end := durationSeconds
			if end <= 0 {
				end = dur
			}
			res.Segments = append(res.Segments, Segment{ID: 0, Start: 0, End: end, Text: text, Confidence: 1})
		}
		return res
	}

	res.Segments = make([]Segment, 0, len(resp.Segments))
	for i, s := range resp.Segments {
		end := s.End
		if end < s.Start {
			end = s.Start
		}
		res.Segments = append(res.Segments, Segment{
			ID:         i,
			Start:      s.Start,
			End:        end,
			Text:       strings.TrimSpace(s.Text),
			Confidence: confidence(s),
		})
	}
	if res.Text == "" {
		res.Text = joinText(res.Segments)
	}
	return res
}

func joinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func confidence(s ResponseSegment) float64 {
	switch {
	case s.Confidence != nil:
		return clamp01(*s.Confidence)
	case s.AvgLogprob != nil:
		return clamp01(math.Exp(*s.AvgLogprob))
	default:
		return DefaultConfidence
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
