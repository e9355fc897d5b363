// Package assistant holds the LLM-backed steps of the pipeline: query
// expansion, grounded answering, summarization and quiz generation.
package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/llm"
	"github.com/hyperjump/shiori/internal/models"
)

// Expander rewrites a user question into a retrieval-friendly query.
type Expander struct {
	gen  llm.Generator
	task config.TaskConfig
}

// NewExpander creates an expander. Expansion should run at temperature 0.
func NewExpander(gen llm.Generator, task config.TaskConfig) *Expander {
	return &Expander{gen: gen, task: task}
}

var queryPrefixes = []string{"search query:", "query:", "поисковый запрос:", "запрос:"}

// Expand returns a single-line search query for question. A failed call or an
// empty result is a *models.GenerationError; callers fall back to the raw question.
func (e *Expander) Expand(ctx context.Context, question string) (string, error) {
	out, err := e.gen.Generate(ctx, buildExpandPrompt(question), llm.Options{
		Task:        "expand",
		Temperature: e.task.Temperature,
		NumCtx:      e.task.NumCtx,
	})
	if err != nil {
		return "", err
	}
	query := cleanQuery(out)
	if query == "" {
		return "", &models.GenerationError{Task: "expand", Err: errors.New("empty expansion")}
	}
	return query, nil
}

// cleanQuery keeps the first non-empty line that is not a preamble ending in
// a colon, drops a leading label and surrounding quotes.
func cleanQuery(out string) string {
	var line string
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasSuffix(l, ":") {
			continue
		}
		line = l
		break
	}
	lower := strings.ToLower(line)
	for _, p := range queryPrefixes {
		if strings.HasPrefix(lower, p) {
			line = strings.TrimSpace(line[len(p):])
			break
		}
	}
	return strings.TrimSpace(strings.Trim(line, "\"'`«»“”"))
}
