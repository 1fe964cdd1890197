package media

// Kind discriminates Metadata.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Metadata describes a probed media file. Duration and stream presence come
// from a single probe call.
type Metadata struct {
	Path            string  `json:"path"`
	Kind            Kind    `json:"kind"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"duration_seconds"`
	BitrateKbps     int     `json:"bitrate_kbps"`
	SizeBytes       int64   `json:"size_bytes"`

	// Audio is set for audio files and for video files with an audio stream.
	Audio *AudioInfo `json:"audio,omitempty"`
	// Video is set only when Kind is KindVideo.
	Video *VideoInfo `json:"video,omitempty"`
}

// AudioInfo is the first audio stream's parameters.
type AudioInfo struct {
	Codec        string `json:"codec"`
	Channels     int    `json:"channels"`
	SampleRateHz int    `json:"sample_rate_hz"`
}

// VideoInfo is the first video stream's parameters.
type VideoInfo struct {
	Codec     string  `json:"codec"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	HasAudio  bool    `json:"has_audio"`
}

// IsVideo reports whether the file has a real video stream.
func (m *Metadata) IsVideo() bool { return m.Kind == KindVideo }

// AudioChunk is one slice written by SplitAudioFile. StartSeconds and
// DurationSeconds are nominal: the requested offset and length, clipped to
// the source duration.
type AudioChunk struct {
	Path            string  `json:"path"`
	Index           int     `json:"index"`
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
}
