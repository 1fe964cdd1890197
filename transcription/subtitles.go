package transcription

import (
	"strconv"
	"strings"
)

// parseCues reads SRT or WebVTT cues. Blocks without a "-->" timing line
// (the WEBVTT header, NOTE and STYLE blocks) are ignored, as are cues whose
// timing does not parse.
func parseCues(body string) []Segment {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var cues []Segment
	for _, block := range strings.Split(body, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		timing := -1
		for i, l := range lines {
			if strings.Contains(l, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			continue
		}
		start, end, ok := parseTiming(lines[timing])
		if !ok {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[timing+1:], " "))
		if text == "" {
			continue
		}
		cues = append(cues, Segment{ID: len(cues), Start: start, End: end, Text: text, Confidence: 1})
	}
	return cues
}

// parseTiming handles "00:00:01,500 --> 00:00:04,000" and the WebVTT form
// with optional hours and trailing cue settings.
func parseTiming(line string) (float64, float64, bool) {
	from, to, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, false
	}
	fields := strings.Fields(to)
	if len(fields) == 0 {
		return 0, 0, false
	}
	start, ok1 := parseTimecode(strings.TrimSpace(from))
	end, ok2 := parseTimecode(fields[0])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	if end < start {
		end = start
	}
	return start, end, true
}

func parseTimecode(s string) (float64, bool) {
	parts := strings.Split(strings.Replace(s, ",", ".", 1), ":")
	if len(parts) < 2 || len(parts) > 3 {
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
