package media

import (
	"time"

	"github.com/kbukum/scribe/process"
)

// Config locates the tools and bounds their runtime.
type Config struct {
	FFprobe string `yaml:"ffprobe" mapstructure:"ffprobe"`
	FFmpeg  string `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	// WorkDir receives outputs when ConversionOptions.OutputDir is empty.
	// Defaults to os.TempDir().
	WorkDir string         `yaml:"work_dir" mapstructure:"work_dir"`
	Process process.Config `yaml:"process" mapstructure:"process"`
}

// ApplyDefaults fills in tool names and a per-invocation timeout.
func (c *Config) ApplyDefaults() {
	if c.FFprobe == "" {
		c.FFprobe = "ffprobe"
	}
	if c.FFmpeg == "" {
		c.FFmpeg = "ffmpeg"
	}
	if c.Process.Timeout == 0 {
		c.Process.Timeout = 10 * time.Minute
	}
}
