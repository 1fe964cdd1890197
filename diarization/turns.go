package diarization

import (
	"context"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/transcription"
)

// TurnPostProcessor assigns each segment the speaker whose audio turn
// overlaps it the most.
type TurnPostProcessor struct {
	backend TurnBackend
	metrics *observability.PipelineMetrics
	log     *logger.Logger
}

var _ PostProcessor = (*TurnPostProcessor)(nil)

// NewTurnPostProcessor creates a post-processor over an audio diarization
// backend. metrics may be nil.
func NewTurnPostProcessor(backend TurnBackend, metrics *observability.PipelineMetrics) *TurnPostProcessor {
	return &TurnPostProcessor{backend: backend, metrics: metrics, log: logger.Get("diarization")}
}

func (p *TurnPostProcessor) Name() string { return "turns:" + p.backend.Name() }

// Process needs opts.AudioPath. It returns res unchanged on any failure.
func (p *TurnPostProcessor) Process(ctx context.Context, res *transcription.Result, opts Options) *transcription.Result {
	if res == nil || len(res.Segments) == 0 {
		return res
	}
	ctx, span := observability.StartSpan(ctx, "diarization.turns")
	defer span.End()
	started := time.Now()

	out, err := p.process(ctx, res, opts)
	p.metrics.RecordStage(ctx, "diarize", time.Since(started), err)
	if err != nil {
		observability.SetSpanError(ctx, err)
		p.log.WithContext(ctx).Warn("diarization skipped", logger.Fields(
			logger.FieldSource, res.SourceFile, logger.FieldError, err.Error(),
		))
		return res
	}
	return out
}

func (p *TurnPostProcessor) process(ctx context.Context, res *transcription.Result, opts Options) (*transcription.Result, error) {
	if opts.AudioPath == "" {
		return nil, apperrors.DiarizationError("audio path required", nil)
	}
	resp, err := p.backend.Diarize(ctx, TurnRequest{
		AudioPath:   opts.AudioPath,
		NumSpeakers: opts.SpeakerCount,
		Language:    opts.Language,
	})
	if err != nil {
		return nil, apperrors.DiarizationError("turn backend failed", err)
	}
	assigned := AssignByOverlap(res.Segments, resp.Turns)
	if len(assigned) == 0 {
		return nil, apperrors.DiarizationError("no turn overlaps a segment", nil)
	}
	return Apply(res, assigned), nil
}

// AssignByOverlap picks, for each segment, the turn with the largest
// positive time overlap. Ties go to the earlier turn.
func AssignByOverlap(segments []transcription.Segment, turns []Turn) Assignment {
	out := make(Assignment)
	for si, s := range segments {
		best, bestOverlap := "", 0.0
		for _, t := range turns {
			if ov := overlap(s.Start, s.End, t.Start, t.End); ov > bestOverlap {
				best, bestOverlap = t.Speaker, ov
			}
		}
		if best != "" {
			out[si] = best
		}
	}
	return out
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo, hi := aStart, aEnd
	if bStart > lo {
		lo = bStart
	}
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
