package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/llm"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// Summarizer writes the short summary stored with every chunk of an article.
type Summarizer struct {
	gen      llm.Generator
	task     config.TaskConfig
	maxInput int
}

// NewSummarizer creates a summarizer. Article text beyond maxInput characters
// is not sent to the model.
func NewSummarizer(gen llm.Generator, task config.TaskConfig, maxInput int) *Summarizer {
	return &Summarizer{gen: gen, task: task, maxInput: maxInput}
}

// Summarize returns a summary with topic tags for the article.
func (s *Summarizer) Summarize(ctx context.Context, title, text string) (string, error) {
	out, err := s.gen.Generate(ctx, buildSummaryPrompt(title, utils.Head(text, s.maxInput)), llm.Options{
		Task:        "summary",
		Temperature: s.task.Temperature,
		NumCtx:      s.task.NumCtx,
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(out)
	if summary == "" {
		return "", &models.GenerationError{Task: "summary", Err: errors.New("empty summary")}
	}
	return summary, nil
}
