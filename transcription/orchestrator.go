package transcription

import (
	"context"
	stderrors "errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/observability"
)

const (
	// DefaultInterChunkDelay separates consecutive chunk submissions.
	DefaultInterChunkDelay = time.Second
	// DefaultChunkTimeout bounds a single chunk submission.
	DefaultChunkTimeout = 5 * time.Minute
)

// Prober reads media metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.Metadata, error)
}

// Splitter cuts an audio file into chunks.
type Splitter interface {
	SplitAudioFile(ctx context.Context, input string, segmentSeconds float64, opts media.ConversionOptions) ([]media.AudioChunk, error)
}

// Config tunes the orchestrator.
type Config struct {
	Policy          Policy        `yaml:"policy" mapstructure:"policy"`
	ContextWindow   int           `yaml:"context_window" mapstructure:"context_window"`
	InterChunkDelay time.Duration `yaml:"inter_chunk_delay" mapstructure:"inter_chunk_delay"`
	ChunkTimeout    time.Duration `yaml:"chunk_timeout" mapstructure:"chunk_timeout"`
	KeepChunks      bool          `yaml:"keep_chunks" mapstructure:"keep_chunks"`
}

// ApplyDefaults fills unset fields. A negative InterChunkDelay disables the
// delay.
func (c *Config) ApplyDefaults() {
	c.Policy = c.Policy.withDefaults()
	if c.ContextWindow <= 0 {
		c.ContextWindow = DefaultContextWindow
	}
	if c.InterChunkDelay == 0 {
		c.InterChunkDelay = DefaultInterChunkDelay
	}
	if c.ChunkTimeout <= 0 {
		c.ChunkTimeout = DefaultChunkTimeout
	}
}

// Options are the per-file transcription parameters.
type Options struct {
	Model                  string
	Language               string
	Prompt                 string
	Temperature            float64
	ResponseFormat         ResponseFormat
	TimestampGranularities []string
	// ChunkSeconds overrides the policy's chunk length when positive.
	ChunkSeconds float64
}

func (o Options) format() ResponseFormat {
	if o.ResponseFormat == "" {
		return FormatVerboseJSON
	}
	return o.ResponseFormat
}

// Orchestrator transcribes one file, splitting it when the policy requires
// and submitting chunks strictly in order.
type Orchestrator struct {
	backend  Backend
	prober   Prober
	splitter Splitter
	cfg      Config
	metrics  *observability.PipelineMetrics
	log      *logger.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewOrchestrator creates an orchestrator. metrics may be nil.
func NewOrchestrator(backend Backend, prober Prober, splitter Splitter, cfg Config, metrics *observability.PipelineMetrics) *Orchestrator {
	cfg.ApplyDefaults()
	return &Orchestrator{
		backend:  backend,
		prober:   prober,
		splitter: splitter,
		cfg:      cfg,
		metrics:  metrics,
		log:      logger.Get("orchestrator"),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Transcribe probes path, decides whether to split and returns one merged
// transcript. The result's DurationSeconds is the probed duration of the
// whole file.
//
// A short file fails as a whole when its single call fails. A split file
// fails only when the split yields no chunks or every chunk fails; partial
// failures are recorded in Result.Gaps.
func (o *Orchestrator) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "transcription.transcribe")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSource, path)
	observability.SetSpanAttribute(ctx, observability.AttrBackend, o.backend.Name())
	log := o.log.WithContext(ctx)

	if !opts.format().Valid() {
		return nil, apperrors.Validation("unknown response format " + string(opts.ResponseFormat))
	}

	md, err := o.prober.Probe(ctx, path)
	if err != nil {
		observability.SetSpanError(ctx, err)
		o.metrics.RecordFile(ctx, observability.StatusFailed)
		if _, ok := apperrors.AsAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.ProbeError(path, "probe failed", err)
	}
	observability.SetSpanAttribute(ctx, observability.AttrDuration, md.DurationSeconds)

	size := md.SizeBytes
	if size <= 0 {
		if fi, statErr := os.Stat(path); statErr == nil {
			size = fi.Size()
		}
	}
	decision := o.cfg.Policy.Decide(size, md.DurationSeconds)
	if opts.ChunkSeconds > 0 {
		decision.ChunkSeconds = opts.ChunkSeconds
	}

	if !decision.Split {
		log.Info("transcribing whole file", logger.Fields(
			logger.FieldSource, path, "size_bytes", size, "duration_s", md.DurationSeconds,
		))
		res, err := o.transcribeOne(ctx, path, opts.Prompt, opts, md.DurationSeconds)
		o.metrics.RecordChunk(ctx, o.backend.Name(), statusOf(err))
		if err != nil {
			observability.SetSpanError(ctx, err)
			o.metrics.RecordFile(ctx, observability.StatusFailed)
			log.Error("transcription failed", logger.Fields(logger.FieldSource, path, logger.FieldError, err.Error()))
			return nil, apperrors.TranscriptionError(path, "backend call failed", err)
		}
		res.SourceFile = path
		res.DurationSeconds = md.DurationSeconds
		o.metrics.RecordFile(ctx, observability.StatusOK)
		return res, nil
	}

	log.Info("splitting file", logger.Fields(
		logger.FieldSource, path, "reason", decision.Reason, "chunk_s", decision.ChunkSeconds,
	))
	started := time.Now()
	chunks, err := o.splitter.SplitAudioFile(ctx, path, decision.ChunkSeconds, media.ConversionOptions{})
	o.metrics.RecordStage(ctx, "split", time.Since(started), err)
	if err != nil {
		observability.SetSpanError(ctx, err)
		o.metrics.RecordFile(ctx, observability.StatusFailed)
		return nil, err
	}
	if len(chunks) == 0 {
		err := apperrors.ConversionError(path, "split produced no chunks", nil)
		observability.SetSpanError(ctx, err)
		o.metrics.RecordFile(ctx, observability.StatusFailed)
		return nil, err
	}
	if !o.cfg.KeepChunks {
		defer o.cleanup(ctx, chunks)
	}

	res, err := o.TranscribeChunks(ctx, path, chunks, opts)
	if err != nil {
		return nil, err
	}
	res.DurationSeconds = md.DurationSeconds
	if gap, ok := trailingGap(chunks, md.DurationSeconds, decision.ChunkSeconds); ok {
		res.Gaps = append(res.Gaps, gap)
	}
	return res, nil
}

// trailingGap reports the stretch after the last chunk when the splitter
// dropped the final indices.
func trailingGap(chunks []media.AudioChunk, total, chunkSeconds float64) (Gap, bool) {
	expected := int(math.Ceil(total / chunkSeconds))
	last := chunks[len(chunks)-1]
	if last.Index >= expected-1 {
		return Gap{}, false
	}
	start := last.StartSeconds + last.DurationSeconds
	if start >= total {
		return Gap{}, false
	}
	return Gap{ChunkIndex: last.Index + 1, Start: start, End: total, Reason: MissingChunkReason}, true
}

// TranscribeChunks transcribes chunks sequentially as a fold. Each prompt
// after the first carries the trailing ContextWindow characters of the last
// successfully transcribed chunk. A failed chunk is logged and skipped.
func (o *Orchestrator) TranscribeChunks(ctx context.Context, source string, chunks []media.AudioChunk, opts Options) (*Result, error) {
	if len(chunks) == 0 {
		return nil, apperrors.ConversionError(source, "no chunks to transcribe", nil)
	}
	ctx, span := observability.StartSpan(ctx, "transcription.chunks")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrChunks, len(chunks))
	log := o.log.WithContext(ctx)

	step := func(ctx context.Context, st chunkState, i int, c media.AudioChunk) (chunkState, error) {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.InterChunkDelay); err != nil {
				return st, err
			}
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		prompt := opts.Prompt
		if hint := ContextHint(st.prevText, o.cfg.ContextWindow); i > 0 && hint != "" {
			prompt = hint
		}
		res, err := o.transcribeOne(ctx, c.Path, prompt, opts, c.DurationSeconds)
		o.metrics.RecordChunk(ctx, o.backend.Name(), statusOf(err))
		if err != nil {
			log.Warn("chunk failed, continuing", logger.Fields(
				logger.FieldSource, source, logger.FieldChunk, c.Index, logger.FieldError, err.Error(),
			))
			st.outcomes = append(st.outcomes, ChunkOutcome{Chunk: c, Err: err})
			return st, nil
		}
		res.SourceFile = source
		log.Debug("chunk transcribed", logger.Fields(
			logger.FieldSource, source, logger.FieldChunk, c.Index, logger.FieldSegments, len(res.Segments),
		))
		st.outcomes = append(st.outcomes, ChunkOutcome{Chunk: c, Result: res})
		if res.Text != "" {
			st.prevText = res.Text
		}
		return st, nil
	}

	st, err := Fold(ctx, chunks, chunkState{}, step)
	if err != nil {
		observability.SetSpanError(ctx, err)
		o.metrics.RecordFile(ctx, observability.StatusFailed)
		return nil, apperrors.TranscriptionError(source, "chunk loop canceled", err)
	}

	var failed int
	var lastErr error
	for _, out := range st.outcomes {
		if !out.Succeeded() {
			failed++
			lastErr = out.Err
		}
	}
	if failed == len(st.outcomes) {
		observability.SetSpanError(ctx, lastErr)
		o.metrics.RecordFile(ctx, observability.StatusFailed)
		log.Error("all chunks failed", logger.Fields(logger.FieldSource, source, logger.FieldChunks, len(chunks)))
		return nil, apperrors.TranscriptionError(source, "every chunk failed", lastErr).
			WithDetail("chunks", len(chunks))
	}

	merged := MergeChunks(st.outcomes)
	merged.SourceFile = source
	status := observability.StatusOK
	if failed > 0 {
		status = observability.StatusPartial
	}
	o.metrics.RecordFile(ctx, status)
	log.Info("chunks merged", logger.Fields(
		logger.FieldSource, source, logger.FieldChunks, len(chunks), "failed", failed,
		logger.FieldSegments, len(merged.Segments),
	))
	return merged, nil
}

// transcribeOne submits one file under the chunk timeout and normalizes the
// response. nominal is the expected duration of the audio.
func (o *Orchestrator) transcribeOne(ctx context.Context, path, prompt string, opts Options, nominal float64) (*Result, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ChunkTimeout)
	defer cancel()

	format := opts.format()
	started := time.Now()
	resp, err := o.backend.Transcribe(cctx, Request{
		AudioPath:              path,
		Model:                  opts.Model,
		Language:               opts.Language,
		Prompt:                 prompt,
		Temperature:            opts.Temperature,
		ResponseFormat:         format,
		TimestampGranularities: opts.TimestampGranularities,
	})
	if err != nil {
		if stderrors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, apperrors.Timeout("transcribe " + filepath.Base(path)).WithCause(err)
		}
		return nil, err
	}
	if resp == nil {
		return nil, apperrors.TranscriptionError(path, "backend returned no response", nil)
	}
	res := Normalize(resp, format, nominal)
	res.ProcessingTimeSeconds = time.Since(started).Seconds()
	return res, nil
}

// cleanup removes the chunk files, then each directory that held them if it
// is left empty. Nothing else in those directories is touched.
func (o *Orchestrator) cleanup(ctx context.Context, chunks []media.AudioChunk) {
	log := o.log.WithContext(ctx)
	dirs := make([]string, 0, 1)
	for _, c := range chunks {
		if err := os.Remove(c.Path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			log.Warn("chunk cleanup failed", logger.Fields("path", c.Path, logger.FieldError, err.Error()))
		}
		if dir := filepath.Dir(c.Path); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		// Fails while the directory still holds other files.
		_ = os.Remove(dir)
	}
}

func statusOf(err error) string {
	if err != nil {
		return observability.StatusFailed
	}
	return observability.StatusOK
}
