package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
)

// Call records one Generate invocation.
type Call struct {
	Prompt string
	Opts   Options
}

// ScriptedGenerator is a deterministic Generator for tests and offline use.
// Responses are returned in order; once exhausted, Fallback (if set) answers,
// otherwise the last response repeats. Err, when set, fails every call.
type ScriptedGenerator struct {
	Responses []string
	Fallback  func(prompt string, opts Options) (string, error)
	Err       error

	mu    sync.Mutex
	calls []Call
	next  int
}

// NewScriptedGenerator returns a generator that replies with responses in order.
func NewScriptedGenerator(responses ...string) *ScriptedGenerator {
	return &ScriptedGenerator{Responses: responses}
}

// Generate returns the next scripted response.
func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Prompt: prompt, Opts: opts})
	if g.Err != nil {
		return "", &models.GenerationError{Task: opts.Task, Err: g.Err}
	}
	if g.next < len(g.Responses) {
		out := g.Responses[g.next]
		g.next++
		return out, nil
	}
	if g.Fallback != nil {
		out, err := g.Fallback(prompt, opts)
		if err != nil {
			return "", &models.GenerationError{Task: opts.Task, Err: err}
		}
		return out, nil
	}
	if len(g.Responses) == 0 {
		return "", &models.GenerationError{Task: opts.Task, Err: errors.New("no scripted response")}
	}
	return g.Responses[len(g.Responses)-1], nil
}

// Calls returns a copy of the recorded calls.
func (g *ScriptedGenerator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// NewEchoGenerator returns an offline generator that answers every prompt
// with its last non-empty line. JSON calls get an empty array.
func NewEchoGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{Fallback: func(prompt string, opts Options) (string, error) {
		if opts.JSON {
			return "[]", nil
		}
		lines := strings.Split(strings.TrimSpace(prompt), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if l := strings.TrimSpace(lines[i]); l != "" {
				return l, nil
			}
		}
		return "", nil
	}}
}
