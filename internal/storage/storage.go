// Package storage defines durable persistence for knowledge chunks.
package storage

import (
	"context"

	"github.com/hyperjump/shiori/internal/models"
)

// Storage defines chunk persistence operations. Chunks are keyed by id and
// grouped into articles by their metadata URL.
type Storage interface {
	// UpsertChunks inserts or replaces chunks in a single transaction.
	UpsertChunks(ctx context.Context, chunks []models.Chunk) error
	// GetChunks returns the chunks with the given ids, in no particular order.
	// Missing ids are skipped.
	GetChunks(ctx context.Context, ids []string) ([]models.Chunk, error)
	// GetByFilter returns chunks matching filter ordered by url and chunk index.
	// A limit <= 0 means no limit.
	GetByFilter(ctx context.Context, filter models.Filter, limit int) ([]models.Chunk, error)
	// DeleteByFilter removes every chunk matching filter in a single
	// transaction and returns the removed ids. filter.URL must be set.
	DeleteByFilter(ctx context.Context, filter models.Filter) ([]string, error)
	// ListArticles returns one row per distinct URL, newest first.
	ListArticles(ctx context.Context, limit int) ([]models.ArticleSummary, error)
	// ForEachEmbedding calls fn for every stored chunk embedding.
	ForEachEmbedding(ctx context.Context, fn func(id string, vec []float32) error) error

	CountArticles(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
