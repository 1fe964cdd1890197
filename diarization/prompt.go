package diarization

import (
	"fmt"
	"strings"

	"github.com/kbukum/scribe/transcription"
)

const systemPrompt = `You identify speakers in transcripts of recorded interviews, statements and hearings.
Label every line with a speaker. Keep each label consistent for the same person across the whole transcript, and prefer role names (for example "Interviewer", "Witness", "Officer") over numbers when the role is evident from the content.
Answer with one line per input line in exactly this form and nothing else:
[start-end]: Speaker: text`

// BuildPrompt renders the user prompt: the full text followed by a
// timestamped listing of every segment.
func BuildPrompt(res *transcription.Result, speakerCount int) string {
	var b strings.Builder
	if speakerCount > 0 {
		fmt.Fprintf(&b, "The recording has %d speakers.\n\n", speakerCount)
	}
	b.WriteString("Full transcript:\n")
	b.WriteString(strings.TrimSpace(res.Text))
	b.WriteString("\n\nTimestamped lines:\n")
	for _, s := range res.Segments {
		fmt.Fprintf(&b, "[%.2f-%.2f]: %s\n", s.Start, s.End, strings.TrimSpace(s.Text))
	}
	return b.String()
}
