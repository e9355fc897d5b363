package embedding

import (
	"fmt"

	"github.com/hyperjump/shiori/internal/config"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg.Provider and wraps it in a cache
// when cfg.CacheSize is positive. An onnx provider that fails to load falls
// back to the mock embedder with a warning.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var embedder Embedder
	switch cfg.Provider {
	case "ollama", "":
		e, err := NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		embedder = e
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embeddings", zap.Error(err))
			embedder = NewMockEmbedder(cfg.Dimensions)
		} else {
			embedder = e
		}
	case "mock":
		embedder = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: ollama, onnx, mock)", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	return embedder, nil
}
