package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder calls an Ollama server's embedding endpoint through langchaingo.
type OllamaEmbedder struct {
	impl       embeddings.Embedder
	model      string
	dimensions int
}

// NewOllamaEmbedder creates an embedder for model served at baseURL. Returned
// vectors must have the given dimensions.
func NewOllamaEmbedder(baseURL, model string, dimensions int) (*OllamaEmbedder, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to construct ollama embedder: %w", err)
	}
	return &OllamaEmbedder{impl: impl, model: model, dimensions: dimensions}, nil
}

// Embed returns the embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &models.EmbeddingError{Err: fmt.Errorf("model %s: %w", e.model, err)}
	}
	if err := checkDimensions(vec, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, &models.EmbeddingError{Err: fmt.Errorf("model %s: %w", e.model, err)}
	}
	if len(vecs) != len(texts) {
		return nil, &models.EmbeddingError{Err: fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts))}
	}
	for _, vec := range vecs {
		if err := checkDimensions(vec, e.dimensions); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}
