package diarization

import (
	"math"
	"strings"
	"unicode"

	"github.com/kbukum/scribe/transcription"
)

const (
	// TimestampTolerance is the largest start or end difference, in seconds,
	// for a timed line to match a segment.
	TimestampTolerance = 1.0
	// FallbackPrefixLen is how many leading characters of a line's text are
	// searched for in segment text when timestamps do not match.
	FallbackPrefixLen = 20
)

// Assignment maps segment index to speaker label.
type Assignment map[int]string

// Align resolves lines onto segments in two passes and returns the
// segment-index to speaker mapping.
//
// Pass one matches timed lines whose start and end are both within
// TimestampTolerance of a segment. Pass two takes every line pass one left
// unresolved and looks for the first FallbackPrefixLen characters of its
// text inside a segment's text. Each segment is assigned at most once and
// each line resolves at most one segment.
func Align(segments []transcription.Segment, lines []Line) Assignment {
	out := make(Assignment)
	resolved := make([]bool, len(lines))

	for li, l := range lines {
		if !l.Timed {
			continue
		}
		for si, s := range segments {
			if _, taken := out[si]; taken {
				continue
			}
			if math.Abs(s.Start-l.Start) < TimestampTolerance && math.Abs(s.End-l.End) < TimestampTolerance {
				out[si] = l.Speaker
				resolved[li] = true
				break
			}
		}
	}

	normalized := make([]string, len(segments))
	for i, s := range segments {
		normalized[i] = normalizeText(s.Text)
	}
	for li, l := range lines {
		if resolved[li] {
			continue
		}
		prefix := textPrefix(normalizeText(l.Text), FallbackPrefixLen)
		if prefix == "" {
			continue
		}
		for si := range segments {
			if _, taken := out[si]; taken {
				continue
			}
			if strings.Contains(normalized[si], prefix) {
				out[si] = l.Speaker
				resolved[li] = true
				break
			}
		}
	}
	return out
}

// Apply returns a copy of res with the assigned speakers set. Segments
// without an assignment keep their current speaker.
func Apply(res *transcription.Result, a Assignment) *transcription.Result {
	out := res.Clone()
	for i := range out.Segments {
		if sp, ok := a[i]; ok {
			out.Segments[i].Speaker = sp
		}
	}
	return out
}

// normalizeText lowercases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}

func textPrefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}
