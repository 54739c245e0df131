// Package ai generates and rewrites task data with a language model.
//
// Callers depend on the Generator interface; the Anthropic implementation
// is the only production one. Responses are plain text: callers extract and
// validate JSON themselves.
package ai

import (
	"context"
	"errors"
)

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("API key required")

// Kind names the operation a request serves. It is recorded in the audit
// log and on telemetry.
type Kind string

const (
	KindAddTask       Kind = "add-task"
	KindUpdateTask    Kind = "update-task"
	KindUpdateSubtask Kind = "update-subtask"
	KindParsePRD      Kind = "parse-prd"
)

// Request is one model call.
type Request struct {
	Kind   Kind
	System string
	Prompt string
	// TaskID is the task or subtask the call is about, if any.
	TaskID string
	// MaxTokens overrides the generator default when positive.
	MaxTokens int
}

// Response is the text the model produced.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Truncate shortens s to at most max runes, replacing the tail with "..."
// when it had to cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
