package transcription

import "fmt"

const (
	// MaxUploadBytes is the largest request body the OpenAI-style backends accept.
	MaxUploadBytes int64 = 25 << 20
	// MaxInlineSeconds is the longest audio sent in one call before latency
	// and quality degrade.
	MaxInlineSeconds = 600.0
	// DefaultChunkSeconds is the chunk length used when splitting.
	DefaultChunkSeconds = 300.0
)

// Policy decides whether a file must be split before transcription.
type Policy struct {
	MaxUploadBytes   int64   `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	MaxInlineSeconds float64 `yaml:"max_inline_seconds" mapstructure:"max_inline_seconds"`
	ChunkSeconds     float64 `yaml:"chunk_seconds" mapstructure:"chunk_seconds"`
}

// DefaultPolicy returns the limits of the OpenAI transcription API.
func DefaultPolicy() Policy {
	return Policy{
		MaxUploadBytes:   MaxUploadBytes,
		MaxInlineSeconds: MaxInlineSeconds,
		ChunkSeconds:     DefaultChunkSeconds,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxUploadBytes <= 0 {
		p.MaxUploadBytes = d.MaxUploadBytes
	}
	if p.MaxInlineSeconds <= 0 {
		p.MaxInlineSeconds = d.MaxInlineSeconds
	}
	if p.ChunkSeconds <= 0 {
		p.ChunkSeconds = d.ChunkSeconds
	}
	return p
}

// Decision is the outcome of Policy.Decide.
type Decision struct {
	Split        bool
	ChunkSeconds float64
	Reason       string
}

// Decide requires a split when sizeBytes exceeds MaxUploadBytes or
// durationSeconds exceeds MaxInlineSeconds. It only looks at its arguments.
func (p Policy) Decide(sizeBytes int64, durationSeconds float64) Decision {
	p = p.withDefaults()
	switch {
	case sizeBytes > p.MaxUploadBytes:
		return Decision{Split: true, ChunkSeconds: p.ChunkSeconds,
			Reason: fmt.Sprintf("size %d exceeds %d bytes", sizeBytes, p.MaxUploadBytes)}
	case durationSeconds > p.MaxInlineSeconds:
		return Decision{Split: true, ChunkSeconds: p.ChunkSeconds,
			Reason: fmt.Sprintf("duration %.1fs exceeds %.0fs", durationSeconds, p.MaxInlineSeconds)}
	default:
		return Decision{ChunkSeconds: p.ChunkSeconds}
	}
}
