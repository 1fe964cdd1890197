// Package errors provides the structured error type shared by every stage of
// the transcription pipeline. Errors carry a machine-readable code, a
// retryable flag and free-form details (source path, chunk index, ...), and
// wrap their cause so errors.Is / errors.As keep working.
package errors
