package media

import (
	"strconv"
	"strings"

	"github.com/kbukum/scribe/validation"
)

// ConversionOptions tunes a transcode. Nil or empty fields leave the encoder
// default in place.
type ConversionOptions struct {
	SampleRateHz   *int   `json:"sample_rate_hz,omitempty" mapstructure:"sample_rate_hz" validate:"omitempty,min=8000,max=192000"`
	Channels       *int   `json:"channels,omitempty" mapstructure:"channels" validate:"omitempty,oneof=1 2"`
	Bitrate        string `json:"bitrate,omitempty" mapstructure:"bitrate" validate:"omitempty,endswith=k"`
	Normalize      bool   `json:"normalize,omitempty" mapstructure:"normalize"`
	NoiseReduction bool   `json:"noise_reduction,omitempty" mapstructure:"noise_reduction"`
	OutputDir      string `json:"output_dir,omitempty" mapstructure:"output_dir"`
}

// Int returns a pointer to v, for building ConversionOptions literals.
func Int(v int) *int { return &v }

// SpeechPreset is the standardization applied before transcription:
// mono, 44.1 kHz, 128 kbps, loudness-normalized and denoised.
func SpeechPreset() ConversionOptions {
	return ConversionOptions{
		SampleRateHz:   Int(44100),
		Channels:       Int(1),
		Bitrate:        "128k",
		Normalize:      true,
		NoiseReduction: true,
	}
}

// Validate checks option ranges.
func (o ConversionOptions) Validate() error {
	return validation.Validate(o)
}

const (
	loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"
	denoiseFilter  = "afftdn=nf=-25"
)

// ffmpegArgs renders the encoder-side flags for o.
func (o ConversionOptions) ffmpegArgs() []string {
	var args []string
	if o.SampleRateHz != nil {
		args = append(args, "-ar", strconv.Itoa(*o.SampleRateHz))
	}
	if o.Channels != nil {
		args = append(args, "-ac", strconv.Itoa(*o.Channels))
	}
	if o.Bitrate != "" {
		args = append(args, "-b:a", o.Bitrate)
	}
	var filters []string
	if o.Normalize {
		filters = append(filters, loudnormFilter)
	}
	if o.NoiseReduction {
		filters = append(filters, denoiseFilter)
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}
	return args
}
