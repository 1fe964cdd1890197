package ingest

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/scribe/diarization"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/media"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/sidecar"
	"github.com/kbukum/scribe/transcription"
)

// DefaultConcurrency bounds ProcessBatch when Config.Concurrency is unset.
const DefaultConcurrency = 2

// Prober reads media metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.Metadata, error)
}

// Converter prepares audio for transcription.
type Converter interface {
	ExtractAudioFromVideo(ctx context.Context, input, targetFormat string, opts media.ConversionOptions) (string, error)
	Standardize(ctx context.Context, input string) (string, error)
}

// Transcriber turns an audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts transcription.Options) (*transcription.Result, error)
}

// Config tunes a Workflow.
type Config struct {
	// AudioFormat is the container extracted from video. Defaults to mp3.
	AudioFormat string `yaml:"audio_format" mapstructure:"audio_format"`
	// Standardize applies the speech preset before transcription.
	Standardize bool `yaml:"standardize" mapstructure:"standardize"`
	// KeepIntermediate leaves extracted and standardized audio on disk.
	KeepIntermediate bool `yaml:"keep_intermediate" mapstructure:"keep_intermediate"`
	// SkipExisting returns early for files that already have a sidecar.
	SkipExisting bool `yaml:"skip_existing" mapstructure:"skip_existing"`
	// Concurrency bounds ProcessBatch.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=0"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.AudioFormat == "" {
		c.AudioFormat = "mp3"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
}

// Request is one file to process.
type Request struct {
	Path    string
	Options transcription.Options
	// Diarize runs the configured post-processor, if any.
	Diarize      bool
	SpeakerCount int
}

// Outcome is the result of processing one file.
type Outcome struct {
	Path       string
	Result     *transcription.Result
	SidecarKey string
	Location   string
	// Skipped is set when SkipExisting found a sidecar.
	Skipped bool
	Err     error
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithDiarizer sets the speaker post-processor used for Request.Diarize.
func WithDiarizer(pp diarization.PostProcessor) Option {
	return func(w *Workflow) { w.diarizer = pp }
}

// WithPublisher sets the completion event sink.
func WithPublisher(p events.Publisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

// WithMetrics records per-stage durations.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithBackendName is recorded in every sidecar document.
func WithBackendName(name string) Option {
	return func(w *Workflow) { w.backend = name }
}

// Workflow wires the pipeline stages together. It is safe for concurrent
// use when its collaborators are.
type Workflow struct {
	prober      Prober
	converter   Converter
	transcriber Transcriber
	store       *sidecar.Store
	diarizer    diarization.PostProcessor
	publisher   events.Publisher
	metrics     *observability.PipelineMetrics
	backend     string
	cfg         Config
	log         *logger.Logger
}

// New creates a Workflow. Events are dropped unless WithPublisher is given.
func New(prober Prober, converter Converter, transcriber Transcriber, store *sidecar.Store, cfg Config, opts ...Option) *Workflow {
	cfg.ApplyDefaults()
	w := &Workflow{
		prober:      prober,
		converter:   converter,
		transcriber: transcriber,
		store:       store,
		publisher:   events.NopPublisher{},
		cfg:         cfg,
		log:         logger.Get("ingest"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process runs the pipeline for req.Path. Failure of the event publish is
// logged but does not fail the file: the sidecar is already stored.
func (w *Workflow) Process(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := observability.StartSpan(ctx, "ingest.process")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSource, req.Path)

	log := w.log.WithContext(ctx)
	out := &Outcome{Path: req.Path}

	if w.cfg.SkipExisting {
		exists, err := w.store.Exists(ctx, req.Path)
		if err != nil {
			return w.fail(ctx, out, err)
		}
		if exists {
			log.Info("sidecar exists, skipping", logger.Fields(logger.FieldSource, req.Path))
			out.Skipped = true
			out.SidecarKey = w.store.Key(req.Path)
			out.Location = w.store.Location(req.Path)
			return out, nil
		}
	}

	var scratch []string
	defer func() {
		if !w.cfg.KeepIntermediate {
			removeAll(scratch)
		}
	}()

	audio, err := w.prepare(ctx, req.Path, &scratch)
	if err != nil {
		return w.fail(ctx, out, err)
	}

	start := time.Now()
	res, err := w.transcriber.Transcribe(ctx, audio, req.Options)
	w.metrics.RecordStage(ctx, "transcribe", time.Since(start), err)
	if err != nil {
		return w.fail(ctx, out, err)
	}
	res.SourceFile = req.Path

	diarizer := ""
	if req.Diarize && w.diarizer != nil {
		res = w.diarizer.Process(ctx, res, diarization.Options{
			SpeakerCount: req.SpeakerCount,
			AudioPath:    audio,
			Language:     res.Language,
		})
		if res.Diarized() {
			diarizer = w.diarizer.Name()
		}
	}
	out.Result = res

	key, err := w.store.Save(ctx, sidecar.Document{Backend: w.backend, Diarizer: diarizer, Transcript: res})
	if err != nil {
		return w.fail(ctx, out, err)
	}
	out.SidecarKey = key
	out.Location = w.store.Location(req.Path)

	ev := events.NewTranscriptReady(events.TranscriptReady{
		SourceFile:      req.Path,
		SidecarKey:      key,
		Location:        out.Location,
		Segments:        len(res.Segments),
		Gaps:            len(res.Gaps),
		Chunks:          res.Chunks,
		Diarized:        res.Diarized(),
		Language:        res.Language,
		DurationSeconds: res.DurationSeconds,
	})
	if err := w.publisher.Publish(ctx, ev); err != nil {
		log.Warn("publish transcript.ready failed", logger.Fields(
			logger.FieldSource, req.Path, logger.FieldError, err.Error(),
		))
	}

	log.Info("file processed", logger.Fields(
		logger.FieldSource, req.Path,
		logger.FieldSegments, len(res.Segments),
		"gaps", len(res.Gaps),
		"sidecar", out.Location,
	))
	return out, nil
}

// prepare returns the audio path to transcribe, appending every file it
// creates to scratch.
func (w *Workflow) prepare(ctx context.Context, path string, scratch *[]string) (string, error) {
	start := time.Now()
	md, err := w.prober.Probe(ctx, path)
	w.metrics.RecordStage(ctx, "probe", time.Since(start), err)
	if err != nil {
		if _, ok := apperrors.AsAppError(err); ok {
			return "", err
		}
		return "", apperrors.ProbeError(path, "probe failed", err)
	}

	audio := path
	if md.IsVideo() {
		if md.Video == nil || !md.Video.HasAudio {
			return "", apperrors.ConversionError(path, "video has no audio stream", nil)
		}
		start = time.Now()
		audio, err = w.converter.ExtractAudioFromVideo(ctx, path, w.cfg.AudioFormat, media.ConversionOptions{})
		w.metrics.RecordStage(ctx, "extract", time.Since(start), err)
		if err != nil {
			return "", err
		}
		*scratch = append(*scratch, audio)
	}

	if w.cfg.Standardize {
		start = time.Now()
		std, err := w.converter.Standardize(ctx, audio)
		w.metrics.RecordStage(ctx, "standardize", time.Since(start), err)
		if err != nil {
			return "", err
		}
		*scratch = append(*scratch, std)
		audio = std
	}
	return audio, nil
}

func (w *Workflow) fail(ctx context.Context, out *Outcome, err error) (*Outcome, error) {
	out.Err = err
	observability.SetSpanError(ctx, err)
	w.log.WithContext(ctx).Error("file failed", logger.Fields(
		logger.FieldSource, out.Path, logger.FieldError, err.Error(),
	))

	code, msg := "INTERNAL_ERROR", err.Error()
	if appErr, ok := apperrors.AsAppError(err); ok {
		code, msg = string(appErr.Code), appErr.Message
	}
	if perr := w.publisher.Publish(ctx, events.NewTranscriptFailed(out.Path, code, msg)); perr != nil {
		w.log.WithContext(ctx).Warn("publish transcript.failed failed", logger.Fields(
			logger.FieldSource, out.Path, logger.FieldError, perr.Error(),
		))
	}
	return out, err
}

// ProcessBatch processes reqs with at most Config.Concurrency files in
// flight. Files are independent: one failure does not cancel the others.
// Outcomes are returned in request order, each with its own Err.
func (w *Workflow) ProcessBatch(ctx context.Context, reqs []Request) []*Outcome {
	outcomes := make([]*Outcome, len(reqs))
	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = &Outcome{Path: req.Path, Err: err}
				return nil
			}
			out, _ := w.Process(ctx, req)
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
