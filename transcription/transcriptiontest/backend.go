// Package transcriptiontest provides a scripted transcription.Backend for
// tests.
package transcriptiontest

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/kbukum/scribe/transcription"
)

// Handler answers one request.
type Handler func(ctx context.Context, req transcription.Request) (*transcription.Response, error)

// Backend records every request and answers through its handler.
type Backend struct {
	name    string
	handler Handler

	mu       sync.Mutex
	requests []transcription.Request
	down     bool
}

// New creates a backend named name.
func New(name string, h Handler) *Backend {
	return &Backend{name: name, handler: h}
}

// ByFile answers from responses keyed by the request file's base name.
// Files present in errs fail with that error; unknown files get an empty
// response.
func ByFile(responses map[string]*transcription.Response, errs map[string]error) Handler {
	return func(_ context.Context, req transcription.Request) (*transcription.Response, error) {
		base := filepath.Base(req.AudioPath)
		if err, ok := errs[base]; ok {
			return nil, err
		}
		if r, ok := responses[base]; ok {
			return r, nil
		}
		return &transcription.Response{}, nil
	}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) IsAvailable(context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.down
}

// SetAvailable toggles IsAvailable.
func (b *Backend) SetAvailable(ok bool) {
	b.mu.Lock()
	b.down = !ok
	b.mu.Unlock()
}

func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	if b.handler == nil {
		return &transcription.Response{}, nil
	}
	return b.handler(ctx, req)
}

// Requests returns a copy of the recorded requests in call order.
func (b *Backend) Requests() []transcription.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transcription.Request(nil), b.requests...)
}

var _ transcription.Backend = (*Backend)(nil)
