package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_UpsertSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Upsert(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("unexpected ranking: %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results should be sorted by descending score")
	}
}

func TestMemoryIndex_UpsertOverwrites(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Upsert(ctx, []string{"x"}, [][]float32{{0, 1}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Fatalf("upsert of existing id should not grow the index, size=%d", idx.Size())
	}
	results, _ := idx.Search(ctx, []float32{1, 0}, 2)
	for _, r := range results {
		if r.Score > 0.5 {
			t.Errorf("no vector should point along x after overwrite, got %s=%f", r.ID, r.Score)
		}
	}
}

func TestMemoryIndex_normalizesInput(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, []string{"long"}, [][]float32{{10, 0}})
	results, err := idx.Search(ctx, []float32{3, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("cosine of parallel vectors should be 1, got %f", results[0].Score)
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, []string{"x", "y", "z"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err := idx.Remove(ctx, []string{"x", "missing"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("expected size 2, got %d", idx.Size())
	}
	// Positions must be rebuilt so a later upsert of z overwrites rather than appends.
	_ = idx.Upsert(ctx, []string{"z"}, [][]float32{{1, 0}})
	if idx.Size() != 2 {
		t.Errorf("expected size 2 after upsert, got %d", idx.Size())
	}
	results, _ := idx.Search(ctx, []float32{1, 0}, 1)
	if results[0].ID != "z" {
		t.Errorf("expected z on top, got %s", results[0].ID)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	err := idx.Upsert(ctx, []string{"ok", "bad"}, [][]float32{{1, 0, 0}, {1, 0}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if idx.Size() != 0 {
		t.Errorf("a rejected batch should store nothing, size=%d", idx.Size())
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected query dimension mismatch error")
	}
}

func TestMemoryIndex_SearchEmpty(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestNewMemoryIndex_InvalidDimension(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}
