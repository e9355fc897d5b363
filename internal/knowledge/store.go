// Package knowledge is the knowledge store: durable chunk rows in SQLite
// mirrored by an in-memory similarity index.
package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
	"go.uber.org/zap"
)

// Store keeps SQLite and the vector index in step. Writes hold an exclusive
// lock across both layers, so a query never sees an article half-deleted or
// a chunk whose row and vector disagree.
type Store struct {
	storage storage.Storage
	index   vector.VectorIndex
	dims    int
	logger  *zap.Logger
	mu      sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a knowledge store over st and idx. dims is the embedding
// dimension every chunk must have.
func NewStore(st storage.Storage, idx vector.VectorIndex, dims int, opts ...Option) *Store {
	s := &Store{
		storage: st,
		index:   idx,
		dims:    dims,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Warm loads every persisted embedding into the vector index. Call once after
// opening, before serving queries.
func (s *Store) Warm(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const batch = 256
	ids := make([]string, 0, batch)
	vecs := make([][]float32, 0, batch)
	loaded, skipped := 0, 0
	flush := func() error {
		if len(ids) == 0 {
			return nil
		}
		if err := s.index.Upsert(ctx, ids, vecs); err != nil {
			return err
		}
		loaded += len(ids)
		ids, vecs = ids[:0], vecs[:0]
		return nil
	}
	err := s.storage.ForEachEmbedding(ctx, func(id string, vec []float32) error {
		if len(vec) != s.dims {
			s.logger.Debug("Skipping chunk with mismatched embedding dimension",
				zap.String("id", id), zap.Int("got", len(vec)), zap.Int("want", s.dims))
			skipped++
			return nil
		}
		ids = append(ids, id)
		vecs = append(vecs, vec)
		if len(ids) == batch {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return loaded, &models.StoreError{Op: "warm", Err: err}
	}
	if skipped > 0 {
		s.logger.Warn("Chunks left out of the vector index; re-ingest their articles after an embedding model change",
			zap.Int("chunks", skipped), zap.Int("dimensions", s.dims))
	}
	s.logger.Info("Vector index warmed", zap.Int("vectors", loaded))
	return loaded, nil
}

// Upsert inserts or overwrites chunks by id. Every chunk must carry an
// embedding of the store's dimension.
func (s *Store) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		if c.ID == "" {
			return &models.StoreError{Op: "upsert", Err: fmt.Errorf("chunk %d has no id", i)}
		}
		if len(c.Embedding) != s.dims {
			return &models.StoreError{Op: "upsert", Err: fmt.Errorf(
				"chunk %s embedding has %d dimensions, want %d", c.ID, len(c.Embedding), s.dims)}
		}
		ids[i] = c.ID
		vecs[i] = c.Embedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.UpsertChunks(ctx, chunks); err != nil {
		return &models.StoreError{Op: "upsert", Err: err}
	}
	if err := s.index.Upsert(ctx, ids, vecs); err != nil {
		return &models.StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// Query returns up to k chunks nearest to vec, best first. An empty store
// yields an empty slice, not an error.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, &models.StoreError{Op: "query", Err: err}
	}
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := s.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, &models.StoreError{Op: "query", Err: err}
	}
	byID := make(map[string]models.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	matches := make([]models.Match, 0, len(hits))
	for _, h := range hits {
		c, ok := byID[h.ID]
		if !ok {
			s.logger.Warn("Vector without stored chunk", zap.String("id", h.ID))
			continue
		}
		matches = append(matches, models.Match{ID: c.ID, Text: c.Text, Score: h.Score, Metadata: c.Metadata})
	}
	return matches, nil
}

// GetByFilter returns chunks matching filter ordered by url and chunk index.
// A limit <= 0 means no limit.
func (s *Store) GetByFilter(ctx context.Context, filter models.Filter, limit int) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, err := s.storage.GetByFilter(ctx, filter, limit)
	if err != nil {
		return nil, &models.StoreError{Op: "get", Err: err}
	}
	return chunks, nil
}

// DeleteByFilter removes every chunk of filter.URL (from filter.MinChunkIndex
// on) and returns how many were removed. Either all matching chunks go or none do.
func (s *Store) DeleteByFilter(ctx context.Context, filter models.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.storage.DeleteByFilter(ctx, filter)
	if err != nil {
		return 0, &models.StoreError{Op: "delete", Err: err}
	}
	if err := s.index.Remove(ctx, ids); err != nil {
		return 0, &models.StoreError{Op: "delete", Err: err}
	}
	return len(ids), nil
}

// Articles lists distinct articles, newest first. A limit <= 0 means no limit.
func (s *Store) Articles(ctx context.Context, limit int) ([]models.ArticleSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	articles, err := s.storage.ListArticles(ctx, limit)
	if err != nil {
		return nil, &models.StoreError{Op: "list", Err: err}
	}
	return articles, nil
}

// Stats reports article, chunk and vector counts.
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	articles, err := s.storage.CountArticles(ctx)
	if err != nil {
		return models.Stats{}, &models.StoreError{Op: "stats", Err: err}
	}
	chunks, err := s.storage.CountChunks(ctx)
	if err != nil {
		return models.Stats{}, &models.StoreError{Op: "stats", Err: err}
	}
	stats := models.Stats{Articles: int(articles), Chunks: int(chunks), Vectors: s.index.Size()}
	// Every vector has a row, so the difference is the rows Warm skipped.
	stats.Unindexed = max(stats.Chunks-stats.Vectors, 0)
	return stats, nil
}

// Close closes the vector index and the underlying storage.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idxErr := s.index.Close()
	if err := s.storage.Close(); err != nil {
		return err
	}
	return idxErr
}
