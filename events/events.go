// Package events publishes pipeline completion events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeTranscriptReady  = "transcript.ready"
	TypeTranscriptFailed = "transcript.failed"
)

// Source identifies this service in every event.
const Source = "scribe"

// Event is a structured domain event. Subject is the media file path and
// doubles as the partition key.
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	ContentType string         `json:"content_type"`
	Version     string         `json:"version"`
	Timestamp   time.Time      `json:"timestamp"`
	Subject     string         `json:"subject,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// ToJSON marshals the event to JSON.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TranscriptReady describes a stored transcript.
type TranscriptReady struct {
	SourceFile      string  `json:"source_file"`
	SidecarKey      string  `json:"sidecar_key"`
	Location        string  `json:"location,omitempty"`
	Segments        int     `json:"segments"`
	Gaps            int     `json:"gaps"`
	Chunks          int     `json:"chunks"`
	Diarized        bool    `json:"diarized"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// NewTranscriptReady builds a transcript.ready event.
func NewTranscriptReady(r TranscriptReady) Event {
	return newEvent(TypeTranscriptReady, r.SourceFile, map[string]any{
		"source_file":      r.SourceFile,
		"sidecar_key":      r.SidecarKey,
		"location":         r.Location,
		"segments":         r.Segments,
		"gaps":             r.Gaps,
		"chunks":           r.Chunks,
		"diarized":         r.Diarized,
		"language":         r.Language,
		"duration_seconds": r.DurationSeconds,
	})
}

// NewTranscriptFailed builds a transcript.failed event carrying the error
// code and message.
func NewTranscriptFailed(source, code, message string) Event {
	return newEvent(TypeTranscriptFailed, source, map[string]any{
		"source_file": source,
		"code":        code,
		"message":     message,
	})
}

func newEvent(typ, subject string, data map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		Source:      Source,
		ContentType: "application/json",
		Version:     "1.0",
		Timestamp:   time.Now().UTC(),
		Subject:     subject,
		Data:        data,
	}
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
