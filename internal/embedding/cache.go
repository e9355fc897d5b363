package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	lru *lru.Cache[string, []float32]
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[string, []float32](capacity)
	return &EmbeddingCache{lru: c}
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	return c.lru.Get(key)
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.lru.Add(key, value)
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}

// CachedEmbedder serves repeated texts from an EmbeddingCache and delegates
// misses to the wrapped embedder. Failures are never cached.
type CachedEmbedder struct {
	inner Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the embedding for text, using the cache when available.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := e.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		e.cache.Set(missing[j], vec)
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}
