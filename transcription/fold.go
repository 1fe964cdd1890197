package transcription

import (
	"context"
	"strings"
)

// DefaultContextWindow is how many trailing characters of the previous
// chunk seed the next chunk's prompt.
const DefaultContextWindow = 100

// ContextHint returns the last window runes of text, trimmed.
func ContextHint(text string, window int) string {
	if window <= 0 {
		return ""
	}
	r := []rune(strings.TrimSpace(text))
	if len(r) <= window {
		return string(r)
	}
	return strings.TrimSpace(string(r[len(r)-window:]))
}

// Fold threads state through items in order. It stops at the first step
// error and returns the state reached so far.
func Fold[T, S any](ctx context.Context, items []T, init S, step func(context.Context, S, int, T) (S, error)) (S, error) {
	state := init
	for i, item := range items {
		next, err := step(ctx, state, i, item)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

// chunkState is the fold accumulator: the text that seeds the next prompt
// and the outcomes so far.
type chunkState struct {
	prevText string
	outcomes []ChunkOutcome
}
