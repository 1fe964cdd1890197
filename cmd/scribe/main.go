// Command scribe transcribes audio and video evidence into timestamped,
// optionally speaker-labeled transcripts stored as sidecar documents.
//
// Usage:
//
//	scribe [flags] FILE...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/version"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	shutdownTTL = 10 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet()
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] FILE...\n\nFlags:\n", serviceName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if v, _ := fs.GetBool("version"); v {
		fmt.Fprintf(stdout, "%s %s\n", serviceName, version.Get())
		return exitOK
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitUsage
	}
	logger.Init(cfg.Logging, cfg.Name)
	log := logger.Get(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.Init(ctx, cfg.Observability, cfg.Name, version.Get().Version, cfg.Environment)
	if err != nil {
		log.Warn("telemetry disabled", logger.Fields(logger.FieldError, err.Error()))
		shutdown = func(context.Context) error { return nil }
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitFailed
	}

	outcomes := a.workflow.ProcessBatch(ctx, buildRequests(cfg, fs.Args()))
	failed := report(stdout, outcomes)

	// Flush with a fresh context: ctx may already be canceled by a signal.
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTTL)
	defer cancel()
	a.close(flushCtx)
	if err := shutdown(flushCtx); err != nil {
		log.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
	}

	if failed > 0 {
		return exitFailed
	}
	return exitOK
}

// buildRequests applies the configured per-file options to every path.
func buildRequests(cfg *Config, paths []string) []ingest.Request {
	opts := transcription.Options{
		Model:          cfg.Transcription.Model,
		Language:       cfg.Transcription.Language,
		Prompt:         cfg.Transcription.Prompt,
		Temperature:    cfg.Transcription.Temperature,
		ResponseFormat: transcription.ResponseFormat(cfg.Transcription.Format),
	}
	reqs := make([]ingest.Request, len(paths))
	for i, p := range paths {
		reqs[i] = ingest.Request{
			Path:         p,
			Options:      opts,
			Diarize:      cfg.Diarization.Enabled,
			SpeakerCount: cfg.Diarization.Speakers,
		}
	}
	return reqs
}

// report prints one line per outcome and returns the failure count.
func report(w io.Writer, outcomes []*ingest.Outcome) int {
	failed := 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", o.Path, o.Err)
		case o.Skipped:
			fmt.Fprintf(w, "SKIP %s -> %s\n", o.Path, o.Location)
		default:
			r := o.Result
			status := "OK  "
			if len(r.Gaps) > 0 {
				status = "PART"
			}
			fmt.Fprintf(w, "%s %s -> %s (%d segments, %d gaps, %.1fs)\n",
				status, o.Path, o.Location, len(r.Segments), len(r.Gaps), r.DurationSeconds)
		}
	}
	return failed
}
