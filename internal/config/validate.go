package config

import (
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
)

// Validate checks cfg after defaults have been applied. It returns a
// *models.ConfigError for the first invalid value found.
func Validate(cfg *Config) error {
	overlap := cfg.Chunking.OverlapOrDefault()
	switch {
	case cfg.Chunking.ChunkSize <= 0:
		return &models.ConfigError{Field: "chunking.chunk_size", Reason: "must be positive"}
	case overlap < 0:
		return &models.ConfigError{Field: "chunking.overlap", Reason: "must not be negative"}
	case overlap >= cfg.Chunking.ChunkSize:
		return &models.ConfigError{
			Field:  "chunking.overlap",
			Reason: fmt.Sprintf("overlap %d must be smaller than chunk_size %d", overlap, cfg.Chunking.ChunkSize),
		}
	}
	if cfg.Retrieval.TopK <= 0 {
		return &models.ConfigError{Field: "retrieval.top_k", Reason: "must be positive"}
	}
	if cfg.Retrieval.MaxK < cfg.Retrieval.TopK {
		return &models.ConfigError{Field: "retrieval.max_k", Reason: "must be at least top_k"}
	}
	if cfg.Embedding.Dimensions <= 0 {
		return &models.ConfigError{Field: "embedding.dimensions", Reason: "must be positive"}
	}
	switch cfg.Embedding.Provider {
	case "ollama", "onnx", "mock":
	default:
		return &models.ConfigError{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Embedding.Provider)}
	}
	switch cfg.LLM.Provider {
	case "ollama", "mock":
	default:
		return &models.ConfigError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.LLM.Provider)}
	}
	for _, n := range cfg.Quiz.Counts {
		if n <= 0 {
			return &models.ConfigError{Field: "quiz.counts", Reason: "counts must be positive"}
		}
	}
	return nil
}
