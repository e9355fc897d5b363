// Package llm wraps text generation backends behind a single-prompt interface.
package llm

import "context"

// Options are per-call sampling settings.
type Options struct {
	// Task names the call for logs and errors ("expand", "answer", "summary", "quiz").
	Task        string
	Temperature float64
	NumCtx      int
	// JSON asks the backend to constrain output to JSON.
	JSON bool
}

// Generator produces a completion for a single prompt. Implementations return
// *models.GenerationError on failure and never retry.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
