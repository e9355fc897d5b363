package llm

import (
	"fmt"

	"github.com/hyperjump/shiori/internal/config"
	"go.uber.org/zap"
)

// New builds the generator selected by cfg.Provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, WithLogger(logger)), nil
	case "mock":
		return NewEchoGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: ollama, mock)", cfg.Provider)
	}
}
