package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/process"
)

// encoders maps a target format to its ffmpeg audio encoder.
var encoders = map[string]string{
	"mp3":  "libmp3lame",
	"aac":  "aac",
	"flac": "flac",
	"ogg":  "libvorbis",
	"wav":  "pcm_s16le",
}

// Encoder returns the ffmpeg encoder for format.
func Encoder(format string) (string, bool) {
	enc, ok := encoders[strings.ToLower(format)]
	return enc, ok
}

// Transcoder runs ffmpeg conversions.
type Transcoder struct {
	binary  string
	workDir string
	exec    process.Executor
	prober  *Prober
	log     *logger.Logger
}

// NewTranscoder creates a Transcoder. A nil exec runs ffmpeg through a
// process.Runner built from cfg.Process; prober is used by extraction and
// splitting.
func NewTranscoder(cfg Config, exec process.Executor, prober *Prober) *Transcoder {
	cfg.ApplyDefaults()
	if exec == nil {
		exec = process.NewRunner("ffmpeg", cfg.Process)
	}
	if prober == nil {
		prober = NewProber(cfg, nil)
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Transcoder{
		binary:  cfg.FFmpeg,
		workDir: workDir,
		exec:    exec,
		prober:  prober,
		log:     logger.Get("media").WithComponent("transcoder"),
	}
}

// NewTools builds a Prober and a Transcoder that share the prober but run
// ffprobe and ffmpeg through separate process.Runners, so each tool keeps its
// own circuit breaker.
func NewTools(cfg Config) (*Prober, *Transcoder) {
	p := NewProber(cfg, nil)
	return p, NewTranscoder(cfg, nil, p)
}

// ConvertAudio re-encodes input as targetFormat.
func (t *Transcoder) ConvertAudio(ctx context.Context, input, targetFormat string, opts ConversionOptions) (string, error) {
	ctx, span := observability.StartSpan(ctx, "media.convert")
	defer span.End()

	out, err := t.transcode(ctx, input, targetFormat, opts, nil)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return out, err
}

// ExtractAudioFromVideo strips the video stream and encodes audio only. The
// input must have a video stream.
func (t *Transcoder) ExtractAudioFromVideo(ctx context.Context, input, targetFormat string, opts ConversionOptions) (string, error) {
	ctx, span := observability.StartSpan(ctx, "media.extract_audio")
	defer span.End()

	md, err := t.prober.Probe(ctx, input)
	if err != nil {
		return "", apperrors.ConversionError(input, "cannot probe input", err)
	}
	if !md.IsVideo() {
		return "", apperrors.ConversionError(input, "input has no video stream", nil)
	}
	out, err := t.transcode(ctx, input, targetFormat, opts, []string{"-vn"})
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return out, err
}

// Standardize converts input to mp3 with SpeechPreset.
func (t *Transcoder) Standardize(ctx context.Context, input string) (string, error) {
	return t.ConvertAudio(ctx, input, "mp3", SpeechPreset())
}

// SplitAudioFile cuts input into ceil(duration/segmentSeconds) chunks of
// segmentSeconds each, written into a fresh directory. A segment whose output
// is missing is skipped, so the result may be shorter than the segment count.
// The directory is removed again when no segment survives.
func (t *Transcoder) SplitAudioFile(ctx context.Context, input string, segmentSeconds float64, opts ConversionOptions) ([]AudioChunk, error) {
	ctx, span := observability.StartSpan(ctx, "media.split")
	defer span.End()

	if segmentSeconds <= 0 {
		return nil, apperrors.ConversionError(input, "segment length must be positive", nil)
	}
	md, err := t.prober.Probe(ctx, input)
	if err != nil {
		return nil, apperrors.ConversionError(input, "cannot probe input", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	if _, ok := encoders[format]; !ok {
		format = "mp3"
	}
	dir, err := t.uniqueDir(input, opts)
	if err != nil {
		return nil, apperrors.ConversionError(input, "cannot create chunk directory", err)
	}

	n := int(math.Ceil(md.DurationSeconds / segmentSeconds))
	chunks := make([]AudioChunk, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(dir)
			return nil, apperrors.ConversionError(input, "split canceled", err)
		}
		start := float64(i) * segmentSeconds
		length := math.Min(segmentSeconds, md.DurationSeconds-start)
		out := filepath.Join(dir, fmt.Sprintf("chunk_%03d.%s", i, format))

		args := []string{"-ss", formatSeconds(start), "-t", formatSeconds(length)}
		if err := t.run(ctx, input, format, opts, args, nil, out); err != nil {
			t.log.WithContext(ctx).Warn("chunk skipped", logger.Fields(
				logger.FieldSource, input, logger.FieldChunk, i, logger.FieldError, err.Error(),
			))
			continue
		}
		chunks = append(chunks, AudioChunk{Path: out, Index: i, StartSeconds: start, DurationSeconds: length})
	}
	if len(chunks) == 0 {
		_ = os.RemoveAll(dir)
	}

	observability.SetSpanAttribute(ctx, observability.AttrChunks, len(chunks))
	t.log.WithContext(ctx).Info("split complete", logger.Fields(
		logger.FieldSource, input, logger.FieldChunks, len(chunks), "expected", n,
	))
	return chunks, nil
}

// transcode writes a uniquely named output next to the work dir.
func (t *Transcoder) transcode(ctx context.Context, input, targetFormat string, opts ConversionOptions, outputArgs []string) (string, error) {
	format := strings.ToLower(targetFormat)
	if _, ok := encoders[format]; !ok {
		return "", apperrors.ConversionError(input, "unsupported target format "+targetFormat, nil)
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = t.workDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.ConversionError(input, "cannot create output directory", err)
	}
	out := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", stem(input), uuid.NewString()[:8], format))
	if err := t.run(ctx, input, format, opts, nil, outputArgs, out); err != nil {
		return "", err
	}
	return out, nil
}

// run invokes ffmpeg once and verifies a non-empty output exists.
func (t *Transcoder) run(ctx context.Context, input, format string, opts ConversionOptions, inputArgs, outputArgs []string, out string) error {
	if _, err := os.Stat(input); err != nil {
		return apperrors.ConversionError(input, "input not found", err)
	}
	if err := opts.Validate(); err != nil {
		return apperrors.ConversionError(input, "invalid conversion options", err)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	args = append(args, inputArgs...)
	args = append(args, "-i", input)
	args = append(args, outputArgs...)
	args = append(args, "-c:a", encoders[format])
	args = append(args, opts.ffmpegArgs()...)
	args = append(args, out)

	start := time.Now()
	res, err := t.exec.Run(ctx, process.Command{Binary: t.binary, Args: args})
	if err != nil {
		return apperrors.ConversionError(input, "ffmpeg failed", err).WithDetail("stderr", res.StderrTail(5))
	}
	if info, statErr := os.Stat(out); statErr != nil || info.Size() == 0 {
		return apperrors.ConversionError(input, "ffmpeg produced no output", statErr)
	}
	t.log.WithContext(ctx).Debug("transcoded", logger.Fields(
		logger.FieldSource, input, "output", out, logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return nil
}

func (t *Transcoder) uniqueDir(input string, opts ConversionOptions) (string, error) {
	base := opts.OutputDir
	if base == "" {
		base = t.workDir
	}
	dir := filepath.Join(base, fmt.Sprintf("%s_chunks_%s", stem(input), uuid.NewString()[:8]))
	return dir, os.MkdirAll(dir, 0o755)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
