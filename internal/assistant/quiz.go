package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/llm"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
	"go.uber.org/zap"
)

// ErrQuizParse is the soft failure for model output that is not a valid quiz.
var ErrQuizParse = errors.New("quiz output is not a valid question list")

// QuizGenerator builds multiple-choice quizzes from article text.
type QuizGenerator struct {
	gen      llm.Generator
	task     config.TaskConfig
	maxInput int
	logger   *zap.Logger
}

// QuizOption configures a QuizGenerator.
type QuizOption func(*QuizGenerator)

// WithQuizLogger sets the logger used to report unparseable output.
func WithQuizLogger(logger *zap.Logger) QuizOption {
	return func(g *QuizGenerator) {
		g.logger = logger
	}
}

// NewQuizGenerator creates a quiz generator.
func NewQuizGenerator(gen llm.Generator, task config.TaskConfig, maxInput int, opts ...QuizOption) *QuizGenerator {
	g := &QuizGenerator{gen: gen, task: task, maxInput: maxInput, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks for n questions about text. Output that does not parse into
// valid questions yields (nil, nil); a failed model call is an error. At most
// n questions are returned.
func (g *QuizGenerator) Generate(ctx context.Context, text string, n int) ([]models.Question, error) {
	out, err := g.gen.Generate(ctx, buildQuizPrompt(n, utils.Head(text, g.maxInput)), llm.Options{
		Task:        "quiz",
		Temperature: g.task.Temperature,
		NumCtx:      g.task.NumCtx,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuiz(out)
	if err != nil {
		g.logger.Warn("Discarding quiz output", zap.Error(err), zap.String("output", utils.Truncate(out, 200)))
		return nil, nil
	}
	if n > 0 && len(questions) > n {
		questions = questions[:n]
	}
	return questions, nil
}

// ParseQuiz decodes model output into questions. Markdown code fences are
// removed first. Both a bare array and an object with a "questions" array are
// accepted. Any invalid question rejects the whole quiz.
func ParseQuiz(out string) ([]models.Question, error) {
	body := stripFences(out)
	var questions []models.Question
	if err := json.Unmarshal([]byte(body), &questions); err != nil {
		var wrapped struct {
			Questions []models.Question `json:"questions"`
		}
		if err2 := json.Unmarshal([]byte(body), &wrapped); err2 != nil || wrapped.Questions == nil {
			return nil, fmt.Errorf("%w: %v", ErrQuizParse, err)
		}
		questions = wrapped.Questions
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrQuizParse)
	}
	for i, q := range questions {
		if !q.Valid() {
			return nil, fmt.Errorf("%w: question %d is malformed", ErrQuizParse, i)
		}
	}
	return questions, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag such as "json".
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "[{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
