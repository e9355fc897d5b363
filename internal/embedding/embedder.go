// Package embedding turns text into vectors for the knowledge store.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
)

// Embedder produces vector embeddings for text. Implementations return
// *models.EmbeddingError on failure and never retry.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach embeds texts one at a time, stopping at the first failure or
// when ctx is done.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &models.EmbeddingError{Err: err}
		}
		vec, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func checkDimensions(vec []float32, want int) error {
	if len(vec) == 0 {
		return &models.EmbeddingError{Err: fmt.Errorf("empty vector")}
	}
	if want > 0 && len(vec) != want {
		return &models.EmbeddingError{Err: fmt.Errorf("dimension mismatch: got %d, want %d", len(vec), want)}
	}
	return nil
}
