package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dims = 3

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func chunk(url string, i int, text string, vec []float32) models.Chunk {
	return models.Chunk{
		ID:        chunkid.ChunkID(url, i),
		Text:      text,
		Embedding: vec,
		Metadata:  models.ChunkMetadata{Title: "T " + url, URL: url, ChunkIndex: i, DateAdded: "2024-01-01"},
	}
}

func TestStore_QueryEmpty(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_UpsertQuery(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []models.Chunk{
		chunk("https://a", 0, "about x", []float32{1, 0, 0}),
		chunk("https://a", 1, "about y", []float32{0, 1, 0}),
		chunk("https://b", 0, "about z", []float32{0, 0, 1}),
	}))

	matches, err := s.Query(ctx, []float32{0.1, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "about y", matches[0].Text)
	assert.Equal(t, 1, matches[0].Metadata.ChunkIndex)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	all, err := s.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	ctx := context.Background()
	c := chunk("https://a", 0, "first", []float32{1, 0, 0})
	require.NoError(t, s.Upsert(ctx, []models.Chunk{c}))
	c.Text = "second"
	require.NoError(t, s.Upsert(ctx, []models.Chunk{c}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Articles: 1, Chunks: 1, Vectors: 1}, stats)

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", matches[0].Text)
}

func TestStore_UpsertRejectsWrongDimension(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	err := s.Upsert(context.Background(), []models.Chunk{chunk("https://a", 0, "x", []float32{1, 0})})
	var storeErr *models.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "upsert", storeErr.Op)
}

func TestStore_DeleteByFilter(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []models.Chunk{
		chunk("https://a", 0, "a0", []float32{1, 0, 0}),
		chunk("https://a", 1, "a1", []float32{1, 0.1, 0}),
		chunk("https://b", 0, "b0", []float32{0, 1, 0}),
	}))

	n, err := s.DeleteByFilter(ctx, models.Filter{URL: "https://a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "https://b", matches[0].Metadata.URL)

	left, err := s.GetByFilter(ctx, models.Filter{URL: "https://a"}, 0)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestStore_WarmRestoresIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	ctx := context.Background()
	first, err := Open(ctx, path, dims)
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, []models.Chunk{chunk("https://a", 0, "persisted", []float32{0, 0, 1})}))
	require.NoError(t, first.Close())

	reopened := openTestStore(t, path)
	matches, err := reopened.Query(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "persisted", matches[0].Text)
}

func TestStore_StatsReportsMismatchedDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	ctx := context.Background()
	first, err := Open(ctx, path, dims)
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, []models.Chunk{chunk("https://a", 0, "old model", []float32{0, 0, 1})}))
	require.NoError(t, first.Close())

	reopened, err := Open(ctx, path, dims+1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Articles: 1, Chunks: 1, Vectors: 0, Unindexed: 1}, stats)

	require.NoError(t, reopened.Upsert(ctx, []models.Chunk{chunk("https://a", 0, "new model", []float32{0, 0, 0, 1})}))
	stats, err = reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Unindexed)
}

func TestStore_ConcurrentQueriesDuringDelete(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	ctx := context.Background()
	var chunks []models.Chunk
	for i := 0; i < 20; i++ {
		chunks = append(chunks, chunk("https://a", i, "a", []float32{1, float32(i) / 20, 0}))
	}
	require.NoError(t, s.Upsert(ctx, chunks))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			matches, err := s.Query(ctx, []float32{1, 0, 0}, 20)
			if err != nil {
				errs <- err
				return
			}
			// All of the article or none of it.
			if len(matches) != 0 && len(matches) != 20 {
				errs <- errors.New("observed a partial deletion")
			}
		}()
	}
	_, err := s.DeleteByFilter(ctx, models.Filter{URL: "https://a"})
	require.NoError(t, err)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestStore_Articles(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kb.db"))
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []models.Chunk{
		chunk("https://a", 0, "a0", []float32{1, 0, 0}),
		chunk("https://a", 1, "a1", []float32{1, 0, 0}),
		chunk("https://b", 0, "b0", []float32{0, 1, 0}),
	}))
	articles, err := s.Articles(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}
