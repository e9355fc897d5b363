package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// OllamaGenerator calls a chat model on an Ollama server through langchaingo.
// Context size and JSON mode are client options in langchaingo, so one client
// is kept per distinct (num_ctx, json) pair.
type OllamaGenerator struct {
	baseURL string
	model   string
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[clientKey]llms.Model
}

type clientKey struct {
	numCtx int
	json   bool
}

// Option configures an OllamaGenerator.
type Option func(*OllamaGenerator)

// WithLogger sets the logger for the generator.
func WithLogger(logger *zap.Logger) Option {
	return func(g *OllamaGenerator) {
		g.logger = logger
	}
}

// NewOllamaGenerator creates a generator for model served at baseURL.
func NewOllamaGenerator(baseURL, model string, opts ...Option) *OllamaGenerator {
	g := &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		logger:  zap.NewNop(),
		clients: make(map[clientKey]llms.Model),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one completion.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	client, err := g.client(clientKey{numCtx: opts.NumCtx, json: opts.JSON})
	if err != nil {
		return "", &models.GenerationError{Task: opts.Task, Err: err}
	}
	g.logger.Debug("Generating",
		zap.String("task", opts.Task),
		zap.String("model", g.model),
		zap.Float64("temperature", opts.Temperature),
		zap.Int("num_ctx", opts.NumCtx),
		zap.Int("prompt_chars", len(prompt)),
	)
	out, err := llms.GenerateFromSinglePrompt(ctx, client, prompt, llms.WithTemperature(opts.Temperature))
	if err != nil {
		return "", &models.GenerationError{Task: opts.Task, Err: fmt.Errorf("model %s: %w", g.model, err)}
	}
	return out, nil
}

func (g *OllamaGenerator) client(key clientKey) (llms.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c, nil
	}
	opts := []ollama.Option{ollama.WithModel(g.model)}
	if g.baseURL != "" {
		opts = append(opts, ollama.WithServerURL(g.baseURL))
	}
	if key.numCtx > 0 {
		opts = append(opts, ollama.WithRunnerNumCtx(key.numCtx))
	}
	if key.json {
		opts = append(opts, ollama.WithFormat("json"))
	}
	c, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	g.clients[key] = c
	return c, nil
}
