package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/llm"
	"github.com/hyperjump/shiori/internal/models"
)

// RefusalPhrases mark an answer in which the model says the context does not
// cover the question. Matching is a case-insensitive substring test.
var RefusalPhrases = []string{
	"no information",
	"don't know",
	"do not know",
	"not found",
	"нет информации",
	"не знаю",
	"не найден",
	"информации нет",
}

// IsRefusal reports whether text contains a refusal phrase.
func IsRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range RefusalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Synthesizer produces grounded answers from retrieved context.
type Synthesizer struct {
	gen  llm.Generator
	task config.TaskConfig
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(gen llm.Generator, task config.TaskConfig) *Synthesizer {
	return &Synthesizer{gen: gen, task: task}
}

// Answer asks the model to answer question from contextText. Unless the model
// refuses, a source line for source is appended to the text.
func (s *Synthesizer) Answer(ctx context.Context, question, contextText string, source models.ChunkMetadata) (*models.Answer, error) {
	out, err := s.gen.Generate(ctx, buildAnswerPrompt(question, contextText), llm.Options{
		Task:        "answer",
		Temperature: s.task.Temperature,
		NumCtx:      s.task.NumCtx,
	})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(out)
	if IsRefusal(text) {
		return &models.Answer{Question: question, Text: text, Refused: true}, nil
	}
	src := source
	return &models.Answer{
		Question: question,
		Text:     text + "\n\n" + Attribution(source),
		Source:   &src,
	}, nil
}

// Attribution formats the source line appended to grounded answers.
func Attribution(source models.ChunkMetadata) string {
	return fmt.Sprintf("Source: %s\n%s", source.Title, source.URL)
}
