package transcription

// Segment is a timestamped span of transcribed text.
type Segment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Gap marks a stretch of the source timeline whose chunk failed to
// transcribe. Start and End are global seconds.
type Gap struct {
	ChunkIndex int     `json:"chunk_index"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Reason     string  `json:"reason"`
}

// Result is a transcript of one chunk or one whole file.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
	// DurationSeconds is the original file's probed duration once the
	// orchestrator finishes; for a per-chunk result it is the chunk's own.
	DurationSeconds       float64 `json:"duration_seconds"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	SourceFile            string  `json:"source_file,omitempty"`
	// Chunks is how many chunks were submitted; 1 for an unsplit file.
	Chunks int   `json:"chunks"`
	Gaps   []Gap `json:"gaps,omitempty"`
}

// Diarized reports whether any segment carries a speaker label.
func (r *Result) Diarized() bool {
	for _, s := range r.Segments {
		if s.Speaker != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Segments = append([]Segment(nil), r.Segments...)
	out.Gaps = append([]Gap(nil), r.Gaps...)
	return &out
}

// ResponseFormat selects the backend output shape.
type ResponseFormat string

const (
	FormatText        ResponseFormat = "text"
	FormatJSON        ResponseFormat = "json"
	FormatVerboseJSON ResponseFormat = "verbose_json"
	FormatSRT         ResponseFormat = "srt"
	FormatVTT         ResponseFormat = "vtt"
)

// Structured reports whether the backend returns a JSON object for f.
func (f ResponseFormat) Structured() bool {
	return f == FormatJSON || f == FormatVerboseJSON
}

// Valid reports whether f is a known format.
func (f ResponseFormat) Valid() bool {
	switch f {
	case FormatText, FormatJSON, FormatVerboseJSON, FormatSRT, FormatVTT:
		return true
	}
	return false
}
