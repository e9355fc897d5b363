package vector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hyperjump/shiori/pkg/utils"
)

type entry struct {
	id  string
	vec []float32
}

// MemoryIndex is a brute-force cosine index held in memory. Vectors are
// copied and normalized on insert, so callers may pass raw model output.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimensions int
	entries    []entry
	positions  map[string]int
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions, positions: make(map[string]int)}, nil
}

// Dimensions returns the vector dimension accepted by the index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

func (m *MemoryIndex) normalized(v []float32) ([]float32, error) {
	if len(v) != m.dimensions {
		return nil, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), m.dimensions)
	}
	out := slices.Clone(v)
	utils.NormalizeL2(out)
	return out, nil
}

// Upsert stores vectors under ids, replacing existing entries in place. A
// batch with any wrongly sized vector is rejected whole.
func (m *MemoryIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	batch := make([]entry, len(ids))
	for i, id := range ids {
		vec, err := m.normalized(vectors[i])
		if err != nil {
			return err
		}
		batch[i] = entry{id: id, vec: vec}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range batch {
		if pos, ok := m.positions[e.id]; ok {
			m.entries[pos] = e
			continue
		}
		m.positions[e.id] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

// Search returns the k entries most similar to query, best first. Equal
// scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	q, err := m.normalized(query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.entries))
	for i, e := range m.entries {
		results[i] = &VectorResult{ID: e.id, Score: utils.Dot(q, e.vec)}
	}
	slices.SortStableFunc(results, func(a, b *VectorResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results[:min(k, len(results))], nil
}

// Remove deletes vectors by id. Unknown ids are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = slices.DeleteFunc(m.entries, func(e entry) bool {
		_, ok := drop[e.id]
		return ok
	})
	clear(m.positions)
	for i, e := range m.entries {
		m.positions[e.id] = i
	}
	return nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
