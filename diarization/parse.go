package diarization

import (
	"regexp"
	"strconv"
	"strings"
)

// Line is one speaker-labeled line from a reasoning backend's answer.
// Start and End are only meaningful when Timed is set.
type Line struct {
	Timed   bool
	Start   float64
	End     float64
	Speaker string
	Text    string
}

var (
	// [12.5-15.0]: Speaker 1: text   also [00:12.5 - 00:15]
	timedLine = regexp.MustCompile(`^\[\s*([0-9:.]+)\s*s?\s*[-–]\s*([0-9:.]+)\s*s?\s*\]\s*:?\s*([^:]{1,40}?)\s*:\s*(.+)$`)
	// Speaker 1: text   **Officer**: text
	labeledLine = regexp.MustCompile(`^([\p{L}][\p{L}\p{N} ._'()-]{0,39}?)\s*:\s*(.+)$`)
	listMarker  = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)
)

// ParseResponse extracts labeled lines from free text. Lines that fit
// neither shape are ignored; it never fails.
func ParseResponse(text string) []Line {
	var out []Line
	for _, raw := range strings.Split(text, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		if m := timedLine.FindStringSubmatch(line); m != nil {
			start, okS := parseTimestamp(m[1])
			end, okE := parseTimestamp(m[2])
			speaker := cleanLabel(m[3])
			text := strings.TrimSpace(m[4])
			if okS && okE && speaker != "" && text != "" {
				out = append(out, Line{Timed: true, Start: start, End: end, Speaker: speaker, Text: text})
				continue
			}
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		if m := labeledLine.FindStringSubmatch(line); m != nil {
			speaker := cleanLabel(m[1])
			text := strings.TrimSpace(m[2])
			if speaker != "" && text != "" {
				out = append(out, Line{Speaker: speaker, Text: text})
			}
		}
	}
	return out
}

func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	s = listMarker.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

func cleanLabel(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// parseTimestamp accepts seconds ("75.5"), "mm:ss(.f)" and "hh:mm:ss(.f)".
func parseTimestamp(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
