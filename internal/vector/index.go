// Package vector provides the in-process similarity index over chunk embeddings.
package vector

import "context"

// VectorIndex defines vector storage and similarity search keyed by chunk id.
type VectorIndex interface {
	// Upsert inserts vectors, replacing any existing vector with the same id.
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity
}
