//go:build !cgo

package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/shiori/internal/models"
)

var errNoCGO = errors.New("ONNX embedder requires cgo; build with CGO_ENABLED=1 and onnxruntime installed")

// ONNXEmbedder is unavailable without cgo; NewONNXEmbedder always fails and
// the factory falls back to the mock embedder.
type ONNXEmbedder struct{}

func NewONNXEmbedder(_ string, _, _ int) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, &models.EmbeddingError{Err: errNoCGO}
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
