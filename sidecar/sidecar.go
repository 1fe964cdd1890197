// Package sidecar stores transcripts as JSON documents keyed by the path
// of the media file they describe.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcription"
)

// Suffix is appended to the source path to form the sidecar key.
const Suffix = ".transcript.json"

// SchemaVersion is written into every document.
const SchemaVersion = 1

// Document is the persisted form of a transcript.
type Document struct {
	SchemaVersion int                   `json:"schema_version"`
	CreatedAt     time.Time             `json:"created_at"`
	Backend       string                `json:"backend,omitempty"`
	Diarizer      string                `json:"diarizer,omitempty"`
	Transcript    *transcription.Result `json:"transcript"`
}

// Store saves and loads sidecar documents.
type Store struct {
	storage storage.Storage
	prefix  string
	now     func() time.Time
	log     *logger.Logger
}

// New creates a Store. Keys are prefix joined with the source path; an
// empty prefix over local storage rooted at "/" writes next to the source.
func New(s storage.Storage, prefix string) *Store {
	return &Store{storage: s, prefix: prefix, now: time.Now, log: logger.Get("sidecar")}
}

// Key returns the storage key for source.
func (s *Store) Key(source string) string {
	src := filepath.ToSlash(source)
	if s.prefix == "" {
		return src + Suffix
	}
	return path.Join(s.prefix, strings.TrimPrefix(src, "/")) + Suffix
}

// Location returns where the sidecar for source lives.
func (s *Store) Location(source string) string { return s.storage.Location(s.Key(source)) }

// Save writes doc for doc.Transcript.SourceFile and returns its key.
func (s *Store) Save(ctx context.Context, doc Document) (string, error) {
	if doc.Transcript == nil || doc.Transcript.SourceFile == "" {
		return "", apperrors.Validation("sidecar: transcript with a source file is required")
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = SchemaVersion
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sidecar: encode: %w", err)
	}
	key := s.Key(doc.Transcript.SourceFile)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("sidecar: save %s: %w", key, err)
	}
	s.log.WithContext(ctx).Info("sidecar saved", logger.Fields(
		logger.FieldSource, doc.Transcript.SourceFile, "location", s.storage.Location(key),
	))
	return key, nil
}

// Load reads the sidecar for source. A missing sidecar is a NOT_FOUND
// AppError.
func (s *Store) Load(ctx context.Context, source string) (*Document, error) {
	key := s.Key(source)
	rc, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc Document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("sidecar: decode %s: %w", key, err)
	}
	if doc.SchemaVersion > SchemaVersion {
		return nil, apperrors.Validation(fmt.Sprintf("sidecar: unsupported schema version %d", doc.SchemaVersion))
	}
	return &doc, nil
}

// Exists reports whether a sidecar for source is already stored.
func (s *Store) Exists(ctx context.Context, source string) (bool, error) {
	return s.storage.Exists(ctx, s.Key(source))
}

// Delete removes the sidecar for source.
func (s *Store) Delete(ctx context.Context, source string) error {
	return s.storage.Delete(ctx, s.Key(source))
}
