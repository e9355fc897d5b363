package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/shiori/pkg/utils"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and offline
// use. Every lower-cased word adds weight to one hashed dimension, so texts
// sharing words point the same way.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a MockEmbedder; non-positive dimensions default to 384.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length word histogram of text. A small floor on every
// dimension keeps unrelated texts at a low positive similarity.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = 0.001
	}
	isSep := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }
	for _, w := range strings.FieldsFunc(strings.ToLower(text), isSep) {
		vec[hashWord(w)%e.dimensions]++
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

func (e *MockEmbedder) Dimensions() int { return e.dimensions }

func (e *MockEmbedder) Close() error { return nil }
