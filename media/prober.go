package media

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/process"
)

// Prober reads media metadata with ffprobe.
type Prober struct {
	binary string
	exec   process.Executor
	log    *logger.Logger
}

// NewProber creates a Prober. A nil exec runs ffprobe through a process.Runner
// built from cfg.Process.
func NewProber(cfg Config, exec process.Executor) *Prober {
	cfg.ApplyDefaults()
	if exec == nil {
		exec = process.NewRunner("ffprobe", cfg.Process)
	}
	return &Prober{binary: cfg.FFprobe, exec: exec, log: logger.Get("media").WithComponent("prober")}
}

// Probe returns the metadata of the file at path. It fails with a PROBE_FAILED
// AppError when the file is missing, ffprobe fails, the output cannot be
// parsed, or the container has no audio or video stream.
func (p *Prober) Probe(ctx context.Context, path string) (*Metadata, error) {
	ctx, span := observability.StartSpan(ctx, "media.probe")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSource, path)

	md, err := p.probe(ctx, path)
	if err != nil {
		observability.SetSpanError(ctx, err)
		p.log.WithContext(ctx).Warn("probe failed", logger.Fields(logger.FieldSource, path, logger.FieldError, err.Error()))
		return nil, err
	}
	p.log.WithContext(ctx).Debug("probed", logger.Fields(
		logger.FieldSource, path,
		"kind", string(md.Kind),
		"duration_s", md.DurationSeconds,
	))
	return md, nil
}

func (p *Prober) probe(ctx context.Context, path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.ProbeError(path, "file not accessible", err)
	}

	res, err := p.exec.Run(ctx, process.Command{
		Binary: p.binary,
		Args:   []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path},
	})
	if err != nil {
		return nil, apperrors.ProbeError(path, "ffprobe failed", err).WithDetail("stderr", res.StderrTail(5))
	}

	var out probeOutput
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return nil, apperrors.ProbeError(path, "unparseable ffprobe output", err)
	}
	md, reason := out.metadata(path)
	if md == nil {
		return nil, apperrors.ProbeError(path, reason, nil)
	}
	md.SizeBytes = info.Size()
	return md, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Channels     int    `json:"channels"`
	SampleRate   string `json:"sample_rate"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
	Disposition  struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

// metadata builds Metadata or explains why it cannot.
func (o *probeOutput) metadata(path string) (*Metadata, string) {
	if len(o.Streams) == 0 {
		return nil, "no streams"
	}

	var audio, video *probeStream
	for i := range o.Streams {
		s := &o.Streams[i]
		switch s.CodecType {
		case "audio":
			if audio == nil {
				audio = s
			}
		case "video":
			// Cover art in mp3/m4a is a video stream flagged attached_pic.
			if video == nil && s.Disposition.AttachedPic == 0 {
				video = s
			}
		}
	}
	if audio == nil && video == nil {
		return nil, "no decodable audio or video stream"
	}

	duration, ok := parseFloat(o.Format.Duration)
	if !ok {
		for _, s := range o.Streams {
			if d, ok := parseFloat(s.Duration); ok && d > duration {
				duration = d
			}
		}
	}
	if duration <= 0 {
		return nil, "no duration reported"
	}

	md := &Metadata{
		Path:            path,
		Kind:            KindAudio,
		Format:          containerFormat(path, o.Format.FormatName),
		DurationSeconds: duration,
	}
	if br, ok := parseFloat(o.Format.BitRate); ok {
		md.BitrateKbps = int(math.Round(br / 1000))
	}
	if audio != nil {
		rate, _ := strconv.Atoi(audio.SampleRate)
		md.Audio = &AudioInfo{Codec: audio.CodecName, Channels: audio.Channels, SampleRateHz: rate}
	}
	if video != nil {
		md.Kind = KindVideo
		fps := ParseRational(video.AvgFrameRate)
		if fps == 0 {
			fps = ParseRational(video.RFrameRate)
		}
		md.Video = &VideoInfo{
			Codec:     video.CodecName,
			Width:     video.Width,
			Height:    video.Height,
			FrameRate: fps,
			HasAudio:  audio != nil,
		}
	}
	return md, ""
}

// ParseRational evaluates an ffprobe rational such as "30000/1001". Plain
// numbers are accepted; "0/0" and garbage evaluate to 0.
func ParseRational(s string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, ok := parseFloat(num)
	if !ok {
		return 0
	}
	if !found {
		return n
	}
	d, ok := parseFloat(den)
	if !ok || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) (float64, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// containerFormat prefers the file extension, falling back to ffprobe's
// first format name ("mov,mp4,m4a,..." -> "mov").
func containerFormat(path, formatName string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
		return ext
	}
	name, _, _ := strings.Cut(formatName, ",")
	return name
}
