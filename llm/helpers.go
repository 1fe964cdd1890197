package llm

import (
	"context"
	"strings"

	"github.com/kbukum/scribe/provider"
)

// Prompt builds a single-turn request.
func Prompt(system, user string) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: user}},
	}
}

// Complete executes req on p, which may be wrapped in provider middlewares,
// and returns the reply text with any enclosing markdown fence removed.
func Complete(ctx context.Context, p provider.RequestResponse[CompletionRequest, CompletionResponse], req CompletionRequest) (string, error) {
	resp, err := p.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	return StripFence(resp.Content), nil
}

// StripFence trims s and removes a surrounding ``` or ```lang fence.
// Text without a leading fence is returned trimmed.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.Index(s, "\n")
	if nl < 0 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[nl+1:]
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
